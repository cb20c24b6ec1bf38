package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoad_CombinesProviders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "alibaba", "may.json"),
		`[{"billing_date":"2024-05-01","pretax_amount":10},{"billing_date":"2024-05-02","pretax_amount":5}]`)
	writeFile(t, filepath.Join(dir, "tencent.csv"), "date,cost,currency\n2024-05-02,1,USD\n2024-05-03,2,CNY\n")
	writeFile(t, filepath.Join(dir, "broken.json"), `[{`)

	var calls atomic.Int64
	res, err := Load(LoadOptions{
		DataDir: dir,
		Rates:   config.NewRates(map[string]float64{"USD": 0.5}),
		Base:    "CNY",
	}, func(_, _ int) { calls.Add(1) })
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalFiles)
	assert.Equal(t, 2, res.ParsedFiles)
	assert.Equal(t, 1, res.FileErrors)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, []string{"alibaba", "tencent"}, res.ProviderNames())

	all, err := res.Series(AllProviders)
	require.NoError(t, err)
	assert.Equal(t, model.DailyCostSeries{"2024-05-01": 10, "2024-05-02": 7, "2024-05-03": 2}, all)

	tx, err := res.Series("Tencent")
	require.NoError(t, err)
	assert.Equal(t, model.DailyCostSeries{"2024-05-02": 2, "2024-05-03": 2}, tx)

	_, err = res.Series("aws")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestLoad_ConfiguredProvidersAndInputs(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "elsewhere", "bill.data")
	writeFile(t, single, `{"2024-05-01": 3}`)
	input := filepath.Join(dir, "Extra.jsonl")
	writeFile(t, input, `{"date":"2024-05-01","amount":4}`+"\n")

	res, err := Load(LoadOptions{
		Providers: []config.ProviderConfig{{Name: "Huawei", Path: single, Format: "daily-json", Currency: "USD"}},
		Inputs:    []string{input},
		Rates:     config.NewRates(map[string]float64{"USD": 0.25}),
		Base:      "CNY",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"extra", "huawei"}, res.ProviderNames())
	assert.Equal(t, 12.0, res.Providers["huawei"]["2024-05-01"])
	assert.Equal(t, 4.0, res.Providers["extra"]["2024-05-01"])
}

func TestLoad_Empty(t *testing.T) {
	res, err := Load(LoadOptions{DataDir: filepath.Join(t.TempDir(), "missing")}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalFiles)
	all, err := res.Series(AllProviders)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLoad_RefundDayIsClamped(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("date,cost,product\n")
	for _, d := range []string{"01", "02", "03", "04", "05", "06", "07", "08"} {
		b.WriteString("2024-05-" + d + ",10,ECS\n")
	}
	b.WriteString("2024-05-09,-25,ECS refund\n")
	writeFile(t, filepath.Join(dir, "aliyun.csv"), b.String())

	res, err := Load(LoadOptions{DataDir: dir, Rates: config.NewRates(nil), Base: "CNY"}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.ParseErrors)
	assert.Equal(t, 1, res.ClampedDays)

	s, err := res.Series("aliyun")
	require.NoError(t, err)
	assert.Equal(t, 0.0, s["2024-05-09"])

	eng := engine.New(engine.Options{Seed: 1, Trees: 5})
	a, err := eng.Analyze(s)
	require.NoError(t, err)
	assert.Len(t, a.Records, 9)

	_, err = eng.CompareBaseline(s, 10)
	require.NoError(t, err)
}
