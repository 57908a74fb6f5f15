package core

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kilupskalvis/immich-tools/internal/immich"
	"github.com/kilupskalvis/immich-tools/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(assets []*models.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"IMG_1234.cr2", "IMG_1234"},
		{"IMG_1234.jpg", "IMG_1234"},
		{"IMG_1234_edit.psd", "IMG_1234"},
		{"IMG_1234-2.jpg", "IMG_1234"},
		{"IMG_1234_.jpg", "IMG_1234"},
		{"DSC_0001-HDR-final.tif", "DSC_0001"},
		{"vacation.jpg", "vacation"},
		{"IMG1234.jpg", "IMG1234"},
		{"IMG_12a.jpg", "IMG_12a"},
		{"2020_0101.jpg", "2020_0101"},
		{"IMG_1234 copy.jpg", "IMG_1234 copy"},
		{"IMG_1234", "IMG_1234"},
		{"archive.tar.gz", "archive.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			a := &models.Asset{OriginalFileName: tt.file}
			assert.Equal(t, tt.want, BaseName(a))
		})
	}
}

func TestIsRaw(t *testing.T) {
	tests := []struct {
		file string
		want bool
	}{
		{"a.cr2", true},
		{"a.CR2", true},
		{"a.NEF", true},
		{"a.arw", true},
		{"a.dng", true},
		{"a.x3f", true},
		{"a.psd", false},
		{"a.jpg", false},
		{"a.heic", false},
		{"a.mp4", false},
		{"a", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRaw(&models.Asset{OriginalFileName: tt.file}))
		})
	}
}

func TestGroupAssets_DropsSingletons(t *testing.T) {
	assets := []*models.Asset{
		newAsset("1", "/p/IMG_1.jpg"),
		newAsset("2", "/p/IMG_2.jpg"),
		newAsset("3", "/p/IMG_1.cr2"),
		newAsset("4", "/p/vacation.jpg"),
		newAsset("5", "/p/IMG_3_edit.jpg"),
		newAsset("6", "/p/IMG_3.nef"),
		newAsset("7", "/p/IMG_3-2.jpg"),
	}

	groups := GroupAssets(assets)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"1", "3"}, ids(groups[0]))
	assert.Equal(t, []string{"5", "6", "7"}, ids(groups[1]))

	for _, g := range groups {
		assert.Greater(t, len(g), 1)
	}
}

func TestGroupAssets_FirstEncounterOrder(t *testing.T) {
	assets := []*models.Asset{
		newAsset("b1", "/p/IMG_2.jpg"),
		newAsset("a1", "/p/IMG_1.jpg"),
		newAsset("a2", "/p/IMG_1.cr2"),
		newAsset("b2", "/p/IMG_2.cr2"),
	}

	groups := GroupAssets(assets)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"b1", "b2"}, ids(groups[0]))
	assert.Equal(t, []string{"a1", "a2"}, ids(groups[1]))
}

func TestGroupAssets_Empty(t *testing.T) {
	assert.Empty(t, GroupAssets(nil))
	assert.Empty(t, GroupAssets([]*models.Asset{newAsset("1", "/p/IMG_1.jpg")}))
}

func TestSortStack_RawFirst(t *testing.T) {
	sorted := SortStack("/p", []*models.Asset{
		newAsset("jpg", "/p/A.jpg"),
		newAsset("raw", "/p/A.cr2"),
	})
	assert.Equal(t, []string{"raw", "jpg"}, ids(sorted))
}

func TestSortStack_PSDIsEdited(t *testing.T) {
	sorted := SortStack("/p", []*models.Asset{
		newAsset("psd", "/p/IMG_1_edit.psd"),
		newAsset("raw", "/p/IMG_1.arw"),
	})
	assert.Equal(t, []string{"raw", "psd"}, ids(sorted))
}

func TestSortStack_FullOrder(t *testing.T) {
	input := []*models.Asset{
		newAsset("root-jpg", "/p/IMG_1.jpg"),
		newAsset("edits-b", "/p/edits/IMG_1_b.jpg"),
		newAsset("edits-a", "/p/edits/IMG_1_a.jpg"),
		newAsset("root-raw", "/p/IMG_1.cr2"),
		newAsset("raw-dir", "/p/raw/IMG_1.cr2"),
		newAsset("unknown", "/p/IMG_1.xyz"),
	}

	sorted := SortStack("/p", input)

	want := []string{
		"raw-dir",  // raw, dir "raw" sorts before ""
		"root-raw", // raw, dir ""
		"edits-a",  // edited, dir "edits", name ascending
		"edits-b",
		"root-jpg", // edited, dir "", stem IMG_1, input order kept on tie
		"unknown",
	}
	if diff := cmp.Diff(want, ids(sorted)); diff != "" {
		t.Errorf("SortStack() mismatch (-want +got):\n%s", diff)
	}

	// input untouched
	assert.Equal(t, "root-jpg", input[0].ID)
}

func TestSortStack_TiesAreStable(t *testing.T) {
	sorted := SortStack("/p", []*models.Asset{
		newAsset("first", "/p/IMG_1.jpg"),
		newAsset("second", "/p/IMG_1.jpeg"),
		newAsset("third", "/p/IMG_1.png"),
	})
	assert.Equal(t, []string{"first", "second", "third"}, ids(sorted))
}

func TestSourceOfTruth(t *testing.T) {
	sorted := SortStack("/p", []*models.Asset{
		newAsset("jpg", "/p/IMG_1.jpg"),
		newAsset("raw-a", "/p/b/IMG_1.cr2"),
		newAsset("raw-b", "/p/a/IMG_1.cr2"),
	})
	require.Equal(t, []string{"raw-a", "raw-b", "jpg"}, ids(sorted))

	src := SourceOfTruth(sorted)
	require.NotNil(t, src)
	assert.Equal(t, "raw-b", src.ID)

	assert.Nil(t, SourceOfTruth([]*models.Asset{newAsset("a", "/p/a.jpg"), newAsset("b", "/p/a.psd")}))
}

func TestMetadataUpdate(t *testing.T) {
	srcTime := time.Date(2019, 5, 1, 10, 0, 0, 0, time.UTC)
	dstTime := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("source wins", func(t *testing.T) {
		src := withLocation(withCapture(newAsset("s", "/p/a.cr2"), srcTime), 1.5, 2.5)
		dst := withLocation(withCapture(newAsset("d", "/p/a.jpg"), dstTime), 9, 9)

		u := MetadataUpdate(src, dst)
		require.NotNil(t, u.DateTimeOriginal)
		assert.True(t, u.DateTimeOriginal.Equal(srcTime))
		assert.Equal(t, 1.5, *u.Latitude)
		assert.Equal(t, 2.5, *u.Longitude)
	})

	t.Run("falls back to target", func(t *testing.T) {
		src := newAsset("s", "/p/a.cr2")
		dst := withLocation(withCapture(newAsset("d", "/p/a.jpg"), dstTime), 3, 4)

		u := MetadataUpdate(src, dst)
		require.NotNil(t, u.DateTimeOriginal)
		assert.True(t, u.DateTimeOriginal.Equal(dstTime))
		assert.Equal(t, 3.0, *u.Latitude)
		assert.Equal(t, 4.0, *u.Longitude)
	})

	t.Run("nothing known", func(t *testing.T) {
		u := MetadataUpdate(newAsset("s", "/p/a.cr2"), newAsset("d", "/p/a.jpg"))
		assert.Nil(t, u.DateTimeOriginal)
		assert.Nil(t, u.Latitude)
		assert.Nil(t, u.Longitude)
	})
}

func TestAutoStack_CreatesOrderedStacks(t *testing.T) {
	client := immich.NewMockClient()
	client.AddAsset("/p", newAsset("jpg1", "/p/IMG_1.jpg"))
	client.AddAsset("/p", newAsset("raw1", "/p/IMG_1.cr2"))
	client.AddAsset("/p", newAsset("solo", "/p/IMG_9.jpg"))
	client.AddAsset("/p", newAsset("jpg2", "/p/IMG_2.jpg"))
	client.AddAsset("/p", newAsset("psd2", "/p/IMG_2_edit.psd"))

	var out bytes.Buffer
	result, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p"}, &out)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Assets)
	assert.Equal(t, 2, result.StacksCreated)
	assert.Equal(t, 0, result.StacksFailed)
	assert.Equal(t, [][]string{{"raw1", "jpg1"}, {"jpg2", "psd2"}}, client.Stacks)
	assert.Equal(t,
		"Stack 1/2: IMG_1.cr2, IMG_1.jpg\n"+
			"Stack 2/2: IMG_2.jpg, IMG_2_edit.psd\n",
		out.String())
	assert.Empty(t, client.Updates)
}

func TestAutoStack_RecursiveRelativePaths(t *testing.T) {
	client := immich.NewMockClient()
	client.Paths = []string{"/p", "/p/raw", "/q"}
	client.AddAsset("/p", newAsset("jpg", "/p/DSC_0001.jpg"))
	client.AddAsset("/p/raw", newAsset("raw", "/p/raw/DSC_0001.nef"))
	client.AddAsset("/q", newAsset("other", "/q/DSC_0001.nef"))

	var out bytes.Buffer
	_, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p", Recursive: true}, &out)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"raw", "jpg"}}, client.Stacks)
	assert.Equal(t, "Stack 1/1: raw/DSC_0001.nef, DSC_0001.jpg\n", out.String())
}

func TestAutoStack_NoAssets(t *testing.T) {
	client := immich.NewMockClient()

	var out bytes.Buffer
	result, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p", CopyMetadata: true}, &out)
	require.NoError(t, err)
	assert.True(t, result.NothingToStack)
	assert.Empty(t, client.Stacks)
	assert.Empty(t, client.Updates)
	assert.Empty(t, out.String())
}

func TestAutoStack_OnlySingletons(t *testing.T) {
	client := immich.NewMockClient()
	client.AddAsset("/p", newAsset("a", "/p/IMG_1.jpg"))
	client.AddAsset("/p", newAsset("b", "/p/IMG_2.jpg"))

	result, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p"}, nil)
	require.NoError(t, err)
	assert.True(t, result.NothingToStack)
	assert.Empty(t, client.Stacks)
}

func TestAutoStack_CopyMetadata(t *testing.T) {
	capture := time.Date(2019, 7, 4, 18, 30, 0, 0, time.UTC)
	raw := withLocation(withCapture(newAsset("raw", "/p/IMG_1.cr2"), capture), 52.52, 13.40)
	raw.LocalDateTime = capture

	same := newAsset("same", "/p/IMG_1_crop.jpg")
	same.LocalDateTime = capture

	edited := newAsset("edited", "/p/IMG_1_edit.jpg")
	edited.LocalDateTime = capture.Add(2 * time.Hour)

	client := immich.NewMockClient()
	for _, a := range []*models.Asset{edited, same, raw} {
		client.AddAsset("/p", a)
	}

	var out bytes.Buffer
	result, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p", CopyMetadata: true}, &out)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"raw", "same", "edited"}}, client.Stacks)
	require.Len(t, client.Updates, 1)
	assert.Equal(t, 1, result.AssetsUpdated)

	u := client.Updates[0]
	assert.Equal(t, "edited", u.ID)
	require.NotNil(t, u.Update.DateTimeOriginal)
	assert.True(t, u.Update.DateTimeOriginal.Equal(capture))
	assert.Equal(t, 52.52, *u.Update.Latitude)
	assert.Equal(t, 13.40, *u.Update.Longitude)

	assert.Contains(t, out.String(), "Copying metadata from IMG_1.cr2 to IMG_1_edit.jpg\n")
	assert.NotContains(t, out.String(), "to IMG_1_crop.jpg")
}

func TestAutoStack_CopyMetadataWithoutRaw(t *testing.T) {
	a := newAsset("jpg", "/p/IMG_1.jpg")
	b := newAsset("psd", "/p/IMG_1.psd")
	b.LocalDateTime = a.LocalDateTime.Add(time.Hour)

	client := immich.NewMockClient()
	client.AddAsset("/p", a)
	client.AddAsset("/p", b)

	_, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p", CopyMetadata: true}, nil)
	require.NoError(t, err)
	assert.Len(t, client.Stacks, 1)
	assert.Empty(t, client.Updates)
}

func TestAutoStack_DryRun(t *testing.T) {
	raw := newAsset("raw", "/p/IMG_1.cr2")
	jpg := newAsset("jpg", "/p/IMG_1.jpg")
	jpg.LocalDateTime = raw.LocalDateTime.Add(time.Minute)

	client := immich.NewMockClient()
	client.AddAsset("/p", raw)
	client.AddAsset("/p", jpg)

	var out bytes.Buffer
	result, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p", CopyMetadata: true, DryRun: true}, &out)
	require.NoError(t, err)

	assert.Empty(t, client.Stacks)
	assert.Empty(t, client.Updates)
	assert.Equal(t, 0, result.StacksCreated)
	assert.Equal(t,
		"Stack 1/1: IMG_1.cr2, IMG_1.jpg\n"+
			"Copying metadata from IMG_1.cr2 to IMG_1.jpg\n",
		out.String())
}

func TestAutoStack_StackRejectedContinues(t *testing.T) {
	client := immich.NewMockClient()
	client.AddAsset("/p", newAsset("a1", "/p/IMG_1.jpg"))
	client.AddAsset("/p", newAsset("a2", "/p/IMG_1.cr2"))
	client.AddAsset("/p", newAsset("b1", "/p/IMG_2.jpg"))
	client.AddAsset("/p", newAsset("b2", "/p/IMG_2.cr2"))
	client.StackErr = &immich.APIError{Status: http.StatusBadRequest, Body: `{"message":"already stacked"}`}

	var out bytes.Buffer
	result, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p"}, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, result.StacksFailed)
	assert.Equal(t, 0, result.StacksCreated)
	assert.Contains(t, out.String(), "ERROR: Failed to create stack 1/2: 400 Bad Request\n")
	assert.Contains(t, out.String(), "Stack 2/2: IMG_2.cr2, IMG_2.jpg\n")
	assert.Contains(t, out.String(), `{"message":"already stacked"}`)
}

func TestAutoStack_TransportErrorAborts(t *testing.T) {
	client := immich.NewMockClient()
	client.AddAsset("/p", newAsset("a1", "/p/IMG_1.jpg"))
	client.AddAsset("/p", newAsset("a2", "/p/IMG_1.cr2"))
	client.AddAsset("/p", newAsset("b1", "/p/IMG_2.jpg"))
	client.AddAsset("/p", newAsset("b2", "/p/IMG_2.cr2"))
	client.StackErr = errors.New("connection reset")

	var out bytes.Buffer
	_, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotContains(t, out.String(), "Stack 2/2")
}

func TestAutoStack_MetadataRejectedAborts(t *testing.T) {
	raw := newAsset("raw", "/p/IMG_1.cr2")
	jpg := newAsset("jpg", "/p/IMG_1.jpg")
	jpg.LocalDateTime = raw.LocalDateTime.Add(time.Hour)
	raw2 := newAsset("raw2", "/p/IMG_2.cr2")
	jpg2 := newAsset("jpg2", "/p/IMG_2.jpg")
	jpg2.LocalDateTime = raw2.LocalDateTime.Add(time.Hour)

	client := immich.NewMockClient()
	for _, a := range []*models.Asset{raw, jpg, raw2, jpg2} {
		client.AddAsset("/p", a)
	}
	client.UpdateErr["jpg"] = &immich.APIError{Status: http.StatusForbidden, Body: "no permission"}

	var out bytes.Buffer
	_, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p", CopyMetadata: true}, &out)
	require.Error(t, err)

	var apiErr *immich.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, client.Stacks, 1)
	assert.Contains(t, out.String(), "ERROR: Failed to copy metadata to jpg: 403 Forbidden\nno permission\n")
}

func TestAutoStack_FetchError(t *testing.T) {
	client := immich.NewMockClient()
	client.FolderErr["/p"] = errors.New("timeout")

	_, err := AutoStack(context.Background(), client, AutoStackOptions{Directory: "/p"}, nil)
	require.Error(t, err)
	assert.Empty(t, client.Stacks)
}
