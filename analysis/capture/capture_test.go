package capture

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/internal/testutil"
)

func TestDiscover_SingleRoot_SortsDevices(t *testing.T) {
	// GIVEN a capture root with devices 2 and 0 and a stray directory
	c := testutil.NewCapture(t)
	c.AddDevice(2, "100")
	c.AddDevice(0, "100")
	c.WriteFile(filepath.Join("device_tmp", "x"), []byte("x"))

	// WHEN discovered
	roots, err := Discover(c.Root)

	// THEN one root with devices in ascending order
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, []DomainID{0, 2}, roots[0].Devices)
	assert.Equal(t, []DomainID{HostDomain, 0, 2}, roots[0].Domains())
}

func TestDiscover_ParentOfRoots_ReturnsEachRoot(t *testing.T) {
	parent := t.TempDir()
	testutil.NewCaptureAt(t, filepath.Join(parent, "PROF_b"))
	testutil.NewCaptureAt(t, filepath.Join(parent, "PROF_a"))

	roots, err := Discover(parent)

	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, filepath.Join(parent, "PROF_a"), roots[0].Path)
	assert.Equal(t, filepath.Join(parent, "PROF_b"), roots[1].Path)
}

func TestDiscover_NoMarker_ConfigurationError(t *testing.T) {
	_, err := Discover(t.TempDir())

	require.Error(t, err)
	assert.Equal(t, analysis.ClassConfiguration, analysis.ClassOf(err))
	assert.True(t, errors.Is(err, analysis.ErrNotCapture))
}

func TestDiscover_MissingPath_ConfigurationError(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, analysis.ClassConfiguration, analysis.ClassOf(err))
}

func TestRoot_Paths(t *testing.T) {
	r := Root{Path: "/cap"}
	assert.Equal(t, filepath.Join("/cap", "host", "sqlite", "ge_hash.db"), r.DBPath(HostDomain, "ge_hash.db"))
	assert.Equal(t, filepath.Join("/cap", "device_3"), r.Dir(3))
	assert.Equal(t, "host", HostDomain.String())
}

func TestFiles_Metadata_Host(t *testing.T) {
	c := testutil.NewCapture(t)
	roots, err := Discover(c.Root)
	require.NoError(t, err)

	md, err := Files{}.Metadata(roots[0], HostDomain)

	require.NoError(t, err)
	require.NotNil(t, md.Frequency)
	assert.Equal(t, testutil.HostFrequency, *md.Frequency)
	require.NotNil(t, md.Start)
	assert.Equal(t, "1000000", *md.Start.Cntvct)
	assert.Nil(t, md.Start.CntvctDiff, "drift term is optional")
	require.NotNil(t, md.End)
}

func TestFiles_Metadata_BlankFrequencyAndNoEnd(t *testing.T) {
	// GIVEN a device whose frequency field is blank and which has no end marker
	c := testutil.NewCapture(t)
	c.AddDevice(0, "")
	roots, err := Discover(c.Root)
	require.NoError(t, err)

	md, err := Files{}.Metadata(roots[0], 0)

	// THEN the field is present but empty, and End is nil
	require.NoError(t, err)
	require.NotNil(t, md.Frequency)
	assert.Equal(t, "", *md.Frequency)
	assert.Nil(t, md.End)
}

func TestFiles_Metadata_MalformedJSON(t *testing.T) {
	c := testutil.NewCapture(t)
	c.WriteFile(filepath.Join("host", "info.json"), []byte("{not json"))
	roots, err := Discover(c.Root)
	require.NoError(t, err)

	_, err = Files{}.Metadata(roots[0], HostDomain)
	assert.Equal(t, analysis.ClassConfiguration, analysis.ClassOf(err))
}
