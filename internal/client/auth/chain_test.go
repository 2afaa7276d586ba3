package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/accswitch/internal/client/api"
	"github.com/iudanet/accswitch/internal/client/callback"
	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
	pkgapi "github.com/iudanet/accswitch/pkg/api"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func xbox(token, hash string) pkgapi.XboxTokenResponse {
	var resp pkgapi.XboxTokenResponse
	resp.Token = token
	resp.DisplayClaims.Xui = []pkgapi.XboxUserClaim{{UserHash: hash}}
	return resp
}

// providerFixture отвечает заготовленным JSON на все шаги протокола
func providerFixture(t *testing.T) *api.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/live/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "M.C507_BAY.code", r.PostForm.Get("code"))
		writeJSON(w, pkgapi.TokenResponse{AccessToken: "msa-token", RefreshToken: "msr-token"})
	})
	mux.HandleFunc("/xbl", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, xbox("xbl-token", "uhs-1"))
	})
	mux.HandleFunc("/xsts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, xbox("xsts-token", "uhs-1"))
	})
	mux.HandleFunc("/mc/login", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.MinecraftLoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "XBL3.0 x=uhs-1;xsts-token", req.IdentityToken)
		writeJSON(w, pkgapi.MinecraftLoginResponse{AccessToken: "mca-token"})
	})
	mux.HandleFunc("/mc/profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer mca-token", r.Header.Get("Authorization"))
		writeJSON(w, pkgapi.MinecraftProfileResponse{ID: "069a79f444e94726a5befca90e38aaf5", Name: "Notch"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return api.NewClient(api.Config{
		Endpoints: api.Endpoints{
			Authorize:        server.URL + "/authorize",
			LiveToken:        server.URL + "/live/token",
			DeviceCode:       server.URL + "/devicecode",
			DeviceToken:      server.URL + "/token",
			XboxAuth:         server.URL + "/xbl",
			XSTSAuth:         server.URL + "/xsts",
			MinecraftLogin:   server.URL + "/mc/login",
			MinecraftProfile: server.URL + "/mc/profile",
		},
		Timeout: 5 * time.Second,
	}, nil)
}

// Полная цепочка через настоящий клиент протокола и настоящий listener
func TestCreateBrowser_ProviderChain(t *testing.T) {
	client := providerFixture(t)
	s := NewService(client, Options{
		Callback: callback.Config{PortFrom: -1, Grace: 10 * time.Millisecond},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	strategy, err := crypto.NewPassword("hunter2")
	require.NoError(t, err)

	rec := newRecorder()
	rec.onStage = openBrowser(t, func(state string) string { return "code=M.C507_BAY.code&state=" + state })

	f, err := s.CreateBrowser(context.Background(), strategy, createRecorder{rec})
	require.NoError(t, err)
	waitFlow(t, f)

	_, errs, accounts, _ := rec.snapshot()
	require.Empty(t, errs)
	require.Len(t, accounts, 1)

	acc := accounts[0]
	assert.Equal(t, crypto.TagPassword, acc.CipherTag)
	assert.Equal(t, "Notch", acc.Name)
	assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", acc.ID.String())
	assert.False(t, acc.Insecure)

	pair, err := Open(acc, strategy)
	require.NoError(t, err)
	assert.Equal(t, models.TokenPair{Access: "mca-token", Refresh: "msr-token"}, pair)

	assert.Equal(t, []models.Stage{
		models.StageInit,
		models.StageOpenBrowser,
		models.StageCodeReceived,
		models.StageTokensObtained,
		models.StageXboxToken,
		models.StageXSTSToken,
		models.StageGameAccessToken,
		models.StageProfileObtained,
		models.StageEncrypting,
		models.StageDone,
	}, f.Session().History())
}
