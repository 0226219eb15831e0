package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/utils"
)

func TestLoadPolicyMissingFileUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"), utils.Discard())
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)

	policy, err = LoadPolicy("", nil)
	require.NoError(t, err)
	assert.Equal(t, 1975, policy.MinYear)
}

func TestLoadPolicyOverridesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	body := []byte(`
years:
  min: 1990
denylists:
  ajcc_pathologic_m: []
  ajcc_pathologic_n: ["Unknown", "NX"]
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	policy, err := LoadPolicy(path, utils.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1990, policy.MinYear)
	assert.Equal(t, 2021, policy.MaxYear)
	assert.Empty(t, policy.Denylist(dataset.ColPathologicM))
	assert.Equal(t, []string{"Unknown", "NX"}, policy.Denylist(dataset.ColPathologicN))
	assert.Len(t, policy.Denylist(dataset.ColDiagnosis), 7)
}

func TestPolicyPackYearsSurviveUnsetOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("years:\n  min: 1990\n  max: 2005\n"), 0o600))

	pack, err := LoadPolicy(path, utils.Discard())
	require.NoError(t, err)

	policy, err := pack.WithYears(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1990, policy.MinYear)
	assert.Equal(t, 2005, policy.MaxYear)

	policy, err = pack.WithYears(0, 2000)
	require.NoError(t, err)
	assert.Equal(t, 1990, policy.MinYear)
	assert.Equal(t, 2000, policy.MaxYear)

	_, err = pack.WithYears(2010, 0)
	require.Error(t, err)
}

func TestLoadPolicyRejectsInvertedYears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("years:\n  min: 2030\n"), 0o600))

	_, err := LoadPolicy(path, utils.Discard())
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	tbl := mustTable(t, dataset.SurvivalCohort,
		"survival_months,race,er_status\n1,White,Positive\n2,Unknown,Negative\n3,Black,Positive\n4,,Borderline\n5,Asian,Unknown\n")

	assert.Equal(t, []string{"Asian", "Black", "White"}, Options(tbl.All(), dataset.ColRace))
	assert.Equal(t, []string{"Negative", "Positive"}, Options(tbl.All(), dataset.ColERStatus, "Borderline"))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, Options(tbl.All(), dataset.ColSurvivalMonths))
	assert.Nil(t, Options(tbl.All(), "missing"))
}

func TestShippedPolicyPackMatchesDefaults(t *testing.T) {
	policy, err := LoadPolicy("../../configs/filters/default.yaml", utils.Discard())
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)
}
