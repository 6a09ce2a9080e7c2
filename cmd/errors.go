package cmd

import "errors"

// ErrNoSelection is returned when a key needs a selected row and there is none
var ErrNoSelection = errors.New("no row selected")
