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

package tools

import "regexp"

// Captures errors happening before any analysis starts (program could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load program")

// Captures the kind of error that happen when you put a flag at the end instead of go files
var namedFilesMustBeGoFiles = regexp.MustCompile("-: named files must be .go files: -(\\w)")

// Captures errors in the config file
var regexConfig = regexp.MustCompile("config file")

// Captures unknown option values in the config file
var regexUnknownOption = regexp.MustCompile("unknown (static-field-strategy|callgraph-algo|seed kind)")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if namedFilesMustBeGoFiles.MatchString(errMsg) {
			return "all command line flags should be before the path to the Go files to analyze"
		}
		return "make sure you have provided the right arguments to load a Go program"
	}
	if regexUnknownOption.MatchString(errMsg) {
		return "static-field-strategy is one of ignore, flow-sensitive or singleton; callgraph-algo is one of " +
			"cha, static or vta; seed kinds are first-argument-of, argument-of or allocation-sites"
	}
	if regexConfig.MatchString(errMsg) {
		return "a config file with a seeds section must be provided with -config"
	}
	return ""
}
