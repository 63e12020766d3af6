package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/registry"
	"github.com/vreid/shiki-arena/internal/pkg/scorer"
	"github.com/vreid/shiki-arena/internal/pkg/testutil"
)

func newRegistry(t *testing.T) (*registry.RegistryService, chan events.Event) {
	t.Helper()

	i, eventChan := testutil.NewInjector(t)
	do.Provide(i, registry.NewRegistryService)

	return do.MustInvoke[*registry.RegistryService](i), eventChan
}

func TestRegisterAsset(t *testing.T) {
	t.Parallel()

	s, eventChan := newRegistry(t)

	asset, err := s.RegisterAsset(context.Background(), testutil.Admin, 7)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), asset.ID)
	assert.Equal(t, int64(scorer.DefaultRating), asset.Rating)
	assert.True(t, asset.Active)

	published := testutil.Drain(eventChan)
	require.Len(t, published, 1)
	registered, ok := published[0].(events.AssetRegistered)
	require.True(t, ok)
	assert.Equal(t, uint64(7), registered.AssetID)
	assert.Equal(t, int64(scorer.DefaultRating), registered.Rating)

	_, err = s.RegisterAsset(context.Background(), testutil.Admin, 7)
	require.ErrorIs(t, err, registry.ErrAlreadyRegistered)
	assert.Empty(t, testutil.Drain(eventChan))
}

func TestRegisterAssetRequiresAdmin(t *testing.T) {
	t.Parallel()

	s, _ := newRegistry(t)

	_, err := s.RegisterAsset(context.Background(), "mallory", 1)
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = s.Asset(1)
	require.ErrorIs(t, err, registry.ErrUnknownAsset)
}

func TestRegisterManySkipsKnownAssets(t *testing.T) {
	t.Parallel()

	s, _ := newRegistry(t)

	_, err := s.RegisterAsset(context.Background(), testutil.Admin, 2)
	require.NoError(t, err)

	response, err := s.RegisterMany(context.Background(), testutil.Admin, []uint64{1, 2, 3, 3})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 3}, response.Registered)
	assert.Equal(t, []uint64{2, 3}, response.Skipped)

	assets, err := s.Assets()
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, uint64(1), assets[0].ID)
	assert.Equal(t, uint64(3), assets[2].ID)
}

func TestSetActiveKeepsHistory(t *testing.T) {
	t.Parallel()

	s, eventChan := newRegistry(t)

	_, err := s.RegisterAsset(context.Background(), testutil.Admin, 4)
	require.NoError(t, err)

	asset, err := s.SetActive(context.Background(), testutil.Admin, 4, false)
	require.NoError(t, err)
	assert.False(t, asset.Active)
	assert.Equal(t, int64(scorer.DefaultRating), asset.Rating)

	published := testutil.Drain(eventChan)
	require.Len(t, published, 2)
	assert.Equal(t, events.KindAssetActiveChanged, published[1].EventKind())

	asset, err = s.SetActive(context.Background(), testutil.Admin, 4, true)
	require.NoError(t, err)
	assert.True(t, asset.Active)

	_, err = s.SetActive(context.Background(), testutil.Admin, 5, true)
	require.ErrorIs(t, err, registry.ErrUnknownAsset)
}

func TestRegistryAPI(t *testing.T) {
	t.Parallel()

	i, _ := testutil.NewInjector(t)
	do.Provide(i, registry.NewRegistryService)
	_ = do.MustInvoke[*registry.RegistryService](i)
	echoService := do.MustInvoke[*common.EchoService](i)

	request := httptest.NewRequest(http.MethodPost, "/api/registry/assets", strings.NewReader(`{"id":9}`))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(common.CallerHeader, testutil.Admin)

	recorder := httptest.NewRecorder()
	echoService.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	request = httptest.NewRequest(http.MethodPost, "/api/registry/assets", strings.NewReader(`{"id":9}`))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(common.CallerHeader, testutil.Admin)

	recorder = httptest.NewRecorder()
	echoService.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "asset already registered")

	recorder = httptest.NewRecorder()
	echoService.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/registry/assets/10", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
