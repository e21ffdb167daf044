package pipeline

import (
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/compiler"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// Files names the files a run reads besides the records.
type Files struct {
	Rules         string
	Context       string
	Aliases       string
	ReferenceDate string // YYYY-MM-DD, overrides the context file
}

// fatalValidation lists the validation codes that stop a run. Every other
// finding only affects the rule it belongs to, which then fails closed
// per record.
var fatalValidation = map[string]bool{
	compiler.ErrRuleIDEmpty:     true,
	compiler.ErrDuplicateRuleID: true,
}

// LoadInputs loads the rule set, run context and alias table. Any error it
// returns is a configuration error and must stop the run before a record
// is read.
func LoadInputs(o Files) (*Inputs, error) {
	cfg, err := LoadConfig(o.Context, o.ReferenceDate)
	if err != nil {
		return nil, err
	}

	rules, err := LoadRuleSet(o.Rules)
	if err != nil {
		return nil, err
	}

	if err := CheckRules(rules, &cfg.Context); err != nil {
		return nil, err
	}

	aliases, err := LoadAliasTable(o.Aliases, cfg)
	if err != nil {
		return nil, err
	}

	return &Inputs{Rules: rules, Config: cfg, Aliases: aliases}, nil
}

// CheckRules validates rules against ctx. Fatal problems are returned
// joined; the rest are logged, and the rule they belong to fails closed
// on every record.
func CheckRules(rules []ir.Rule, ctx *ir.Context) error {
	var fatal []error
	for _, ve := range compiler.Validate(rules, ctx) {
		if fatalValidation[ve.Code] {
			fatal = append(fatal, ve)
			continue
		}
		slog.Warn("rule will fail closed", "rule_id", ve.RuleID, "code", ve.Code, "field", ve.Field, "error", ve.Message)
	}
	return errors.Join(fatal...)
}

// LoadRuleSet compiles every rule file under path. All load errors are
// collected and returned joined.
func LoadRuleSet(path string) ([]ir.Rule, error) {
	if path == "" {
		return nil, &compiler.LoadError{Code: compiler.ErrCodeNotFound, Message: "a rules path is required"}
	}
	res, errs := compiler.LoadRules(path, compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	slog.Debug("rules loaded", "path", path, "files", len(res.Files), "rules", len(res.Rules))
	return res.Rules, nil
}

// LoadConfig reads the context file, or builds a default configuration
// around referenceDate when no file is given.
func LoadConfig(path, referenceDate string) (*config.Config, error) {
	if path == "" {
		if referenceDate == "" {
			return nil, &config.Error{Code: config.ErrReferenceDate, Message: "a context file or reference date is required"}
		}
		cfg := config.Default(time.Time{})
		if err := cfg.SetReferenceDate(referenceDate); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if referenceDate != "" {
		if err := cfg.SetReferenceDate(referenceDate); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadAliasTable reads an alias file. Sources declared in it are merged
// into cfg. A nil result keeps the compiled-in aliases.
func LoadAliasTable(path string, cfg *config.Config) ([]entity.AliasRule, error) {
	if path == "" {
		return nil, nil
	}
	table, err := config.LoadAliases(path)
	if err != nil {
		return nil, err
	}
	maps.Copy(cfg.Sources, table.Sources)
	return table.Aliases, nil
}

