// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the agent's YAML configuration.
//
// Configuration comes from at most one file, named by the --config
// flag or the ANVEKSHA_CONFIG environment variable (see [Resolve]).
// Without either, [Default] is used as is: a local agent must work
// without any file. A file only needs the keys it changes; everything
// else keeps its default.
//
// Path fields support ${VAR}, ${VAR:-default} and a leading ~ after
// loading. ${ANVEKSHA_ROOT} refers to the configured root, so derived
// paths follow a relocated root. Durations are strings such as "5s".
//
// This package depends on no other anveksha packages.
package config
