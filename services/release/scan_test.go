// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package release

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanCleanTree(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "pkg/a_test.go",
		"package a\n\nfunc TestAdd(t *testing.T) {}\n")
	writeTestFile(t, root, "pkg/b_test.go",
		"package a\n\nfunc TestSub(t *testing.T) {}\n")

	result, err := Scan(root, []string{"**/*_test.go"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesScanned)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 100.0, result.Score)
}

func TestScanFindsMarkers(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "tests/test_gaps.py",
		"@pytest.mark.skip(reason=\"flaky\")\n"+
			"def test_gap_urgency():\n"+
			"    pass\n"+
			"\n"+
			"@pytest.mark.xfail\n"+
			"def test_velocity():\n"+
			"    pass\n"+
			"\n"+
			"# def test_disabled():\n"+
			"#     pass\n"+
			"\n"+
			"def testCamelCase():\n"+
			"    pass\n")

	result, err := Scan(root, []string{"**/test_*.py"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesScanned)
	assert.Equal(t, []string{
		CategoryCommentedTest,
		CategoryNaming,
		CategorySkipMarker,
		CategoryXfailMarker,
	}, result.Categories)
	// 4 categories x 10 + 2 marker findings = 42 penalty; the commented
	// test and the naming violation count against categories only.
	assert.Equal(t, 58.0, result.Score)
}

func TestScanGoMarkers(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "pkg/flaky_test.go",
		"package pkg\n"+
			"\n"+
			"func TestFlaky(t *testing.T) {\n"+
			"\tt.Skip(\"tracked separately\")\n"+
			"}\n"+
			"\n"+
			"// func TestOld(t *testing.T) {}\n")

	result, err := Scan(root, []string{"**/*_test.go"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{CategorySkipMarker, CategoryCommentedTest}, result.Categories)
	assert.Len(t, result.Findings, 2)
	// 2 categories x 10 + 1 skip marker.
	assert.Equal(t, 79.0, result.Score)
}

func TestScanScoreClampedAtZero(t *testing.T) {
	root := t.TempDir()
	content := ""
	for i := 0; i < 120; i++ {
		content += "@pytest.mark.skip\n"
	}
	writeTestFile(t, root, "test_many.py", content)

	result, err := Scan(root, []string{"test_*.py"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	assert.Len(t, result.Findings, 120)
}

func TestScanFindingsSorted(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "b_test.py", "@skip\ndef test_b():\n    pass\n")
	writeTestFile(t, root, "a_test.py", "x = 1\n@skip\ndef test_a():\n    pass\n")

	result, err := Scan(root, []string{"*_test.py"})
	require.NoError(t, err)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "a_test.py", result.Findings[0].File)
	assert.Equal(t, 2, result.Findings[0].Line)
	assert.Equal(t, "b_test.py", result.Findings[1].File)
}

func TestScanEmptyRootScansCwd(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "flaky_test.go",
		"package p\n\nfunc TestFlaky(t *testing.T) { t.Skip(\"x\") }\n")
	t.Chdir(root)

	result, err := Scan("", []string{"*_test.go"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesScanned)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, 89.0, result.Score)
}

func TestScanBrokenRootErrors(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"), []string{"**/*_test.go"})
	require.Error(t, err)
}

func TestScanEmptyGlob(t *testing.T) {
	result, err := Scan(t.TempDir(), []string{"**/*_test.go"})
	require.NoError(t, err)
	assert.Zero(t, result.FilesScanned)
	assert.Equal(t, 100.0, result.Score)
}
