// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	errExpectedPointerToStruct = errors.New("expected a pointer to a struct")
	errUnsupportedSliceType    = errors.New("unsupported slice type")
	errUnsupportedFieldType    = errors.New("unsupported field type")
)

var durationType = reflect.TypeOf(time.Duration(0))

// envBinding is one struct field carrying an env tag.
type envBinding struct {
	field     reflect.Value
	name      string // Go field name, for error messages
	variable  string
	overwrite bool
}

// readEnv overlays environment variables onto spec, which must be a
// pointer to a struct. Fields are bound through `env:"NAME[,overwrite]"`
// tags; without overwrite a variable only fills a zero-valued field.
func readEnv(spec any) error {
	root := reflect.ValueOf(spec)
	if root.Kind() != reflect.Ptr {
		return fmt.Errorf("%w, got %s", errExpectedPointerToStruct, root.Kind())
	}

	if root.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got a pointer to %s", errExpectedPointerToStruct, root.Elem().Kind())
	}

	for _, b := range collectBindings(root.Elem()) {
		raw, ok := os.LookupEnv(b.variable)
		if !ok || !b.field.CanSet() {
			continue
		}

		if !b.overwrite && !b.field.IsZero() {
			continue
		}

		if err := assign(b, raw); err != nil {
			return err
		}
	}

	return nil
}

// collectBindings walks nested structs depth first.
func collectBindings(v reflect.Value) []envBinding {
	var out []envBinding

	t := v.Type()

	for i := range v.NumField() {
		field, sf := v.Field(i), t.Field(i)

		tag := sf.Tag.Get("env")
		if tag == "" {
			if field.Kind() == reflect.Struct && field.Type() != durationType {
				out = append(out, collectBindings(field)...)
			}

			continue
		}

		parts := strings.Split(tag, ",")
		out = append(out, envBinding{
			field:     field,
			name:      sf.Name,
			variable:  parts[0],
			overwrite: slices.Contains(parts[1:], "overwrite"),
		})
	}

	return out
}

func assign(b envBinding, raw string) error {
	parseErr := func(kind string, err error) error {
		return fmt.Errorf("failed to parse %s for %s from env var %s (%s): %w", kind, b.name, b.variable, raw, err)
	}

	switch b.field.Kind() {
	case reflect.String:
		b.field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if b.field.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return parseErr("duration", err)
			}

			b.field.SetInt(int64(d))

			return nil
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return parseErr("int", err)
		}

		b.field.SetInt(n)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return parseErr("bool", err)
		}

		b.field.SetBool(v)
	case reflect.Slice:
		if b.field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w for field %s", errUnsupportedSliceType, b.name)
		}

		values := []string{}

		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				values = append(values, item)
			}
		}

		b.field.Set(reflect.ValueOf(values))
	default:
		return fmt.Errorf("%w for field %s: %s", errUnsupportedFieldType, b.name, b.field.Kind())
	}

	return nil
}

// useDotEnv loads a .env file from the working directory, falling back to
// the directory of the binary. A missing file is not an error.
func useDotEnv() error {
	candidates := []string{}

	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	} else {
		log.Warn().Err(err).Msg("Could not get current working directory")
	}

	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ".env"))
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path) // #nosec G304 -- fixed, well-known locations
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not read .env file")

			return nil
		}

		applyDotEnv(path, data)

		return nil
	}

	log.Info().Msg("No .env file found, skipping")

	return nil
}

// applyDotEnv sets KEY=VALUE pairs that are not already present in the
// environment. Matching surrounding quotes are stripped.
func applyDotEnv(path string, data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			log.Warn().
				Str("path", path).
				Int("line", lineNumber).
				Msg("Invalid format in .env file")

			continue
		}

		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == value[len(value)-1] && (value[0] == '"' || value[0] == '\'') {
			value = value[1 : len(value)-1]
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Could not set environment variable")
		}
	}

	log.Info().Str("path", path).Msg("Loaded configuration from .env file")
}
