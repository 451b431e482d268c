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

/*
Package config provides a simple way to manage configuration files.

Use [LoadFromFile](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. For example, a valid config file is as follows:

	options:
	  log-level: 4
	  timeout: 10s
	  static-field-strategy: flow-sensitive
	seeds:
	  - kind: first-argument-of
	    target:
	      package: database/sql
	      method: Query

# Identifying code elements

The config uses [CodeIdentifier] to identify specific code entities. An important feature of the code identifiers is
that the string specifications are seen as regexes if they can be compiled to regexes, otherwise they are strings.

# Unsound options

The budgets (timeout, max-propagations and max-memory-mb) and the ignore static-field strategy may make the results
incomplete. Results computed under an exhausted budget are flagged as timed out.
*/
package config
