package conf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	schedule, err := parseSchedule("0s, 1m,2m ,15m,1h")
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, schedule)
}

func TestParseScheduleRejectsBadInput(t *testing.T) {
	_, err := parseSchedule("0s,soon")
	assert.Error(t, err)

	_, err = parseSchedule("0s,-1m")
	assert.Error(t, err)
}

func TestValidateRequiresLarkCredentials(t *testing.T) {
	cfg := &Config{Escalation: EscalationConfig{Schedule: DefaultSchedule}}
	assert.Error(t, cfg.Validate())

	cfg.Lark = LarkConfig{AppID: "cli_x", AppSecret: "secret"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonIncreasingSchedule(t *testing.T) {
	cfg := &Config{
		Lark:       LarkConfig{AppID: "cli_x", AppSecret: "secret"},
		Escalation: EscalationConfig{Schedule: []time.Duration{0, 2 * time.Minute, time.Minute}},
	}
	assert.Error(t, cfg.Validate())
}

func TestLoadMatchingConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/matching.yaml"
	yaml := `
thresholds:
  - max_len: 6
    distance: 1
  - max_len: 0
    distance: 3
confusables:
  - token: form
    keyword: from
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadMatchingConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Thresholds[0].MaxLen)
	assert.Equal(t, 3, cfg.Thresholds[1].Distance)
	require.Len(t, cfg.Confusables, 1)
	assert.Equal(t, "form", cfg.Confusables[0].Token)

	// Omitted sections keep the built-in language data.
	assert.NotEmpty(t, cfg.Suffixes["latin"])
	assert.NotEmpty(t, cfg.Scripts)
}
