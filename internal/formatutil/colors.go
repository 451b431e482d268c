// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package formatutil colors the output of the command line tools and sanitizes strings printed to the terminal.
package formatutil

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// Styles of the messages printed by the tools. Styles are only applied when the standard output is a terminal
// and NO_COLOR is not set.
var (
	Bold    = Color("1")
	Faint   = Color("2")
	Red     = Color("1;31")
	Green   = Color("1;32")
	Yellow  = Color("1;33")
	Purple  = Color("1;34")
	Magenta = Color("1;35")
	Cyan    = Color("1;36")
)

var (
	colorsOnce    sync.Once
	colorsEnabled bool
)

// EnableColors overrides the terminal detection
func EnableColors(enabled bool) {
	colorsOnce.Do(func() {})
	colorsEnabled = enabled
}

func useColors() bool {
	colorsOnce.Do(func() {
		_, noColor := os.LookupEnv("NO_COLOR")
		colorsEnabled = !noColor && term.IsTerminal(int(os.Stdout.Fd()))
	})
	return colorsEnabled
}

// Color returns a function that prints its arguments with the SGR parameters sgr
func Color(sgr string) func(...interface{}) string {
	return func(args ...interface{}) string {
		s := fmt.Sprint(args...)
		if !useColors() {
			return s
		}
		return "\033[" + sgr + "m" + s + "\033[0m"
	}
}

// Sanitize escapes the control characters of s
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	return r[1 : len(r)-1]
}

// SanitizeRepr escapes the control characters of the string representation of s
func SanitizeRepr(s fmt.Stringer) string {
	return Sanitize(s.String())
}
