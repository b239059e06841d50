package conformance

import (
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite *TestSuite
	Test  TestCase
}

// LoadDir walks dir of fsys and loads every test case of every *.yaml suite.
func LoadDir(fsys fs.FS, dir string) (loaded []LoadedTest, err error) {
	err = fs.WalkDir(fsys, dir, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() || path.Ext(name) != ".yaml" {
			return nil
		}

		suite, err := LoadFile(fsys, name)
		if err != nil {
			return &ErrSuite{File: name, Err: err}
		}

		for _, test := range suite.Tests {
			loaded = append(loaded, LoadedTest{
				File:  name,
				Suite: suite,
				Test:  test,
			})
		}

		return nil
	})
	if err != nil {
		loaded = nil
	}

	return
}

// LoadFile parses a single YAML suite.
func LoadFile(fsys fs.FS, name string) (suite *TestSuite, err error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return
	}

	suite = &TestSuite{}
	err = yaml.Unmarshal(data, suite)
	if err != nil {
		suite = nil
		return
	}

	return
}
