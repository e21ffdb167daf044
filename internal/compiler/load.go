package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes, shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No rule files found
	ErrCodeLoadFailed  = "E004" // File read or YAML extraction failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeCompile     = "E010" // Rule failed to compile
)

// LoadResult contains the rules loaded from a file or directory.
type LoadResult struct {
	Rules []ir.Rule
	Files []string
}

// LoadError represents an error that occurred during rule loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules loads rules from a single file or every rule file under a
// directory, in sorted path order. *.cue files are compiled as CUE; *.yaml
// and *.yml files are extracted through CUE's YAML encoder so both share one
// compiler.
func LoadRules(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules path: %v", err)}}
	}

	var files []string
	if info.IsDir() {
		files, err = FindRuleFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no rule files found in %s", path)}}
	}

	ctx := cuecontext.New()
	result := &LoadResult{Files: files}
	var errs []error

	for _, file := range files {
		doc, err := buildFile(ctx, file)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		vals, labels, err := RuleValues(doc)
		if err != nil {
			errs = append(errs, convertCompileError(err, file))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		for i, v := range vals {
			rule, err := CompileRule(v, labels[i])
			if err != nil {
				errs = append(errs, convertCompileError(err, file))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Rules = append(result.Rules, rule)
		}
	}
	return result, errs
}

// CompileSource compiles rules from in-memory source. The extension of name
// selects CUE or YAML.
func CompileSource(name string, src []byte) ([]ir.Rule, error) {
	doc, err := buildSource(cuecontext.New(), name, src)
	if err != nil {
		return nil, err
	}
	return CompileRules(doc)
}

func buildFile(ctx *cue.Context, file string) (cue.Value, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)}
	}
	return buildSource(ctx, file, src)
}

func buildSource(ctx *cue.Context, name string, src []byte) (cue.Value, error) {
	var v cue.Value
	if isYAML(name) {
		f, err := cueyaml.Extract(name, src)
		if err != nil {
			return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("extracting YAML %s: %v", name, err)}
		}
		v = ctx.BuildFile(f)
	} else {
		v = ctx.CompileBytes(src, cue.Filename(name))
	}
	if err := v.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building %s: %v", name, err)}
	}
	return v, nil
}

// FindRuleFiles walks dir and returns every .cue, .yaml and .yml path,
// sorted.
func FindRuleFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && (filepath.Ext(path) == ".cue" || isYAML(path)) {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: compileErr.Field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", file, err),
	}
}
