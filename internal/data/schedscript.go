package data

import (
	"fmt"
	"os"
)

// ScheduledScript names a script function to call every
// [MinCycle, MaxCycle] seconds.
type ScheduledScript struct {
	Script   string `yaml:"script"`
	Function string `yaml:"function"`
	MinCycle int    `yaml:"min_cycle"`
	MaxCycle int    `yaml:"max_cycle"`
}

type scheduledScriptFile struct {
	Scripts []ScheduledScript `yaml:"scripts"`
}

func LoadScheduledScripts(path string) ([]ScheduledScript, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheduled scripts: %w", err)
	}
	return ParseScheduledScripts(doc)
}

func ParseScheduledScripts(doc []byte) ([]ScheduledScript, error) {
	var f scheduledScriptFile
	if err := decode("scheduled_scripts", doc, &f); err != nil {
		return nil, err
	}
	for _, s := range f.Scripts {
		if s.MaxCycle < s.MinCycle {
			return nil, fmt.Errorf("scheduled script %s.%s: max_cycle %d < min_cycle %d",
				s.Script, s.Function, s.MaxCycle, s.MinCycle)
		}
	}
	return f.Scripts, nil
}
