package methods

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ResolveDefaults(t *testing.T) {
	c := NewCatalog()
	testCases := []struct {
		name string
		want Tier
	}{
		{"MI", Baseline},
		{"CA", Baseline},
		{"SIFT", Descriptor},
		{"aAMD", Descriptor},
		{"VXM", Learned},
		{"comir", Learned},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, c.Resolve(tc.name).Tier, tc.name)
	}
}

func TestCatalog_ResolveFallback(t *testing.T) {
	c := NewCatalog()
	testCases := []struct {
		name string
		want Tier
	}{
		{"MI_pyramid", Baseline},
		{"NMI", Baseline},
		{"SIFT_cyc_A", Learned},
		{"aAMD_p2p_B", Learned},
		{"CoMIR_tiled", Baseline}, // contains "MI"
		{"VXMplus", Descriptor},
		{"VXM2", Descriptor},
		{"comir_rot", Learned},
		{"tiledcomir", Learned},
		{"Comir", Descriptor},
		{"ORB", Descriptor},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Resolve(tc.name).Tier)
		})
	}
}

func TestCatalog_ResolveCaches(t *testing.T) {
	c := NewCatalog()
	first := c.Resolve("ORB")
	c.Set(Method{Name: "BRISK", Tier: Learned})
	assert.Equal(t, first, c.Resolve("ORB"))
	assert.Equal(t, Learned, c.Resolve("BRISK").Tier)

	found := false
	for _, m := range c.Methods() {
		if m.Name == "ORB" {
			found = true
		}
	}
	assert.True(t, found, "resolved method should be cached in the catalog")
}

func TestCatalog_SetOverrides(t *testing.T) {
	c := NewCatalog()
	c.Set(Method{Name: "SIFT", Tier: Baseline})
	assert.Equal(t, Baseline, c.Resolve("SIFT").Tier)
}

func TestCatalog_Methods(t *testing.T) {
	got := NewCatalog().Methods()
	want := []Method{
		{"CA", Baseline}, {"MI", Baseline},
		{"SIFT", Descriptor}, {"aAMD", Descriptor},
		{"VXM", Learned}, {"comir", Learned},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Methods() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_ConcurrentResolve(t *testing.T) {
	c := NewCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Resolve("SIFT_drit_A")
			c.Resolve("MI")
		}()
	}
	wg.Wait()
	assert.Equal(t, Learned, c.Resolve("SIFT_drit_A").Tier)
}

func TestTier_Text(t *testing.T) {
	b, err := json.Marshal(Method{Name: "MI", Tier: Baseline})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"MI","tier":"baseline"}`, string(b))

	var m Method
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","tier":"Learned"}`), &m))
	assert.Equal(t, Learned, m.Tier)

	assert.Error(t, json.Unmarshal([]byte(`{"name":"x","tier":"other"}`), &m))
	assert.Equal(t, "tier(7)", Tier(7).String())
}
