package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/npezzotti/go-roomboard/internal/command"
	"github.com/npezzotti/go-roomboard/internal/config"
	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"github.com/npezzotti/go-roomboard/internal/session"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"github.com/npezzotti/go-roomboard/internal/testutil"
	"github.com/npezzotti/go-roomboard/internal/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

type testApp struct {
	*RoomBoardApp
	repo  *database.MockRoomBoardRepository
	pub   *notify.MockPublisher
	stats *stats.MockStatsUpdater
}

func newTestApp(t *testing.T) *testApp {
	logger := testutil.TestLogger(t)

	repo := &database.MockRoomBoardRepository{}
	pub := &notify.MockPublisher{}
	pub.On("Publish", mock.Anything).Return(nil)
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Return()

	app := NewRoomBoardApp(
		http.NewServeMux(),
		logger,
		nil,
		repo,
		command.NewService(logger, repo, pub),
		session.NewManager(logger, repo, testSigningKey, time.Hour),
		su,
		&config.Config{
			ServerAddr: "localhost:0",
			Games:      []string{"freefire", "bgmi"},
		},
	)

	return &testApp{RoomBoardApp: app, repo: repo, pub: pub, stats: su}
}

var testAccounts = map[types.Role]types.Account{
	types.RolePlayer:   {Id: 1, Name: "Player", EmailAddress: "player@example.com", Role: types.RolePlayer},
	types.RoleEmployee: {Id: 2, Name: "Employee", EmailAddress: "employee@example.com", Role: types.RoleEmployee},
	types.RoleAdmin:    {Id: 3, Name: "Admin", EmailAddress: "admin@example.com", Role: types.RoleAdmin},
}

// signIn returns a session cookie for an account with role and stubs the
// account lookup performed on every verified request.
func (a *testApp) signIn(t *testing.T, role types.Role) *http.Cookie {
	account := testAccounts[role]
	a.repo.On("GetAccountById", account.Id).Return(account, nil)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user-id": account.Id,
		"role":    string(account.Role),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"jti":     uuid.NewString(),
	})
	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)

	return &http.Cookie{Name: tokenCookieKey, Value: signed}
}

// do sends a request through the full handler chain.
func (a *testApp) do(method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, target, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "expected JSON body, got %q", rr.Body.String())
	return v
}
