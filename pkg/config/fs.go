package config

import "github.com/spf13/afero"

// fs is the filesystem that config files are read from and written to. It's
// replaced with afero.NewMemMapFs() in the tests.
var fs = afero.NewOsFs()
