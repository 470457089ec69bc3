// Package vcs reads the revision of the source tree from its git repository.
package vcs

import (
	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"

	"github.com/agenium-scale/nsconfig/log"
)

// SourceRevision returns the commit checked out in the repository holding dir, suffixed with "-dirty" when the
// worktree has uncommitted changes. It returns "" when dir is not inside a git repository.
func SourceRevision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		log.Debug("'%s' is not in a git repository.\n", dir)
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "Failed to open repository of '%s'", dir)
	}

	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "Failed to get repo HEAD")
	}
	revision := head.Hash().String()
	log.Debug("Repo HEAD is '%s'.\n", revision)

	dirty, err := isDirty(repo)
	if err != nil {
		return "", err
	}
	if dirty {
		revision += "-dirty"
	}
	return revision, nil
}

func isDirty(repo *git.Repository) (bool, error) {
	worktree, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "Failed to get repo worktree")
	}
	status, err := worktree.Status()
	if err != nil {
		return false, errors.Wrap(err, "Failed to get repo status")
	}
	return !status.IsClean(), nil
}
