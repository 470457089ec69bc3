package util

import (
	"strconv"
	"strings"
	"testing"
)

func TestMappedSlice(t *testing.T) {
	r := []int{123, 44, -4}
	m := MappedSlice(r, func(v int) string { return strconv.Itoa(v) })

	expected := []string{"123", "44", "-4"}
	if len(m) != len(expected) {
		t.Fatal("unexpected result size")
	}
	for i := range m {
		if m[i] != expected[i] {
			t.Fatalf("unexpected value at index %d", i)
		}
	}
}

func TestUniq(t *testing.T) {
	r := []string{"-Wall", "-O2", "-Wall", "a.c", "-O2"}
	m := Uniq(r)
	if strings.Join(m, " ") != "-Wall -O2 a.c" {
		t.Fatalf("unexpected result %v", m)
	}
}
