package config

import (
	"strconv"
	"time"

	"github.com/grantpath/grantpath/src/advisor"
)

// LoadAdvisor reads the ranking weights and execution limits, env-first
// with DB settings taking precedence when loaded. Unset or unparsable
// values fall back to the advisor package defaults.
func LoadAdvisor() advisor.Config {
	cfg := advisor.Config{}
	if v, err := strconv.ParseFloat(GetSetting("advisor_weight_amount", "ADVISOR_WEIGHT_AMOUNT", ""), 64); err == nil {
		cfg.WeightAmount = v
	}
	if v, err := strconv.ParseFloat(GetSetting("advisor_weight_count", "ADVISOR_WEIGHT_COUNT", ""), 64); err == nil {
		cfg.WeightCount = v
	}
	if v, err := strconv.Atoi(GetSetting("advisor_topk", "ADVISOR_TOPK", "")); err == nil {
		cfg.TopK = v
	}
	if v, err := time.ParseDuration(GetSetting("advisor_task_timeout", "ADVISOR_TASK_TIMEOUT", "")); err == nil {
		cfg.TaskTimeout = v
	}
	if v, err := time.ParseDuration(GetSetting("advisor_report_ttl", "ADVISOR_REPORT_TTL", "")); err == nil {
		cfg.ReportTTL = v
	}
	return cfg
}
