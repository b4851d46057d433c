package http

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTransfers struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*domain.TransferRequest
	bikes    *memBikes
	profiles *memProfiles
}

func newMemTransfers(bikes *memBikes, profiles *memProfiles) *memTransfers {
	return &memTransfers{
		requests: map[uuid.UUID]*domain.TransferRequest{},
		bikes:    bikes,
		profiles: profiles,
	}
}

func (m *memTransfers) CreateTransfer(_ context.Context, req *domain.TransferRequest) (*domain.TransferRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return req, nil
}

func (m *memTransfers) GetTransferByID(_ context.Context, id uuid.UUID) (*domain.TransferRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound("Solicitud no encontrada.")
}

func (m *memTransfers) HasPendingTransfer(_ context.Context, bikeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.BikeID == bikeID && r.Status == domain.TransferPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTransfers) filter(keep func(*domain.TransferRequest) bool) []*domain.TransferRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.TransferRequest{}
	for _, r := range m.requests {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memTransfers) GetTransfersBySender(_ context.Context, senderID string) ([]*domain.TransferRequest, error) {
	return m.filter(func(r *domain.TransferRequest) bool { return r.FromOwnerID == senderID }), nil
}

func (m *memTransfers) GetTransfersByRecipientEmail(_ context.Context, email string) ([]*domain.TransferRequest, error) {
	email = domain.FoldEmail(email)
	return m.filter(func(r *domain.TransferRequest) bool { return r.ToUserEmail == email }), nil
}

func (m *memTransfers) RunInTx(ctx context.Context, fn func(tx ports.TransferTx) error) error {
	return fn(memTransferTx{m})
}

type memTransferTx struct{ m *memTransfers }

func (tx memTransferTx) GetTransferForUpdate(ctx context.Context, id uuid.UUID) (*domain.TransferRequest, error) {
	return tx.m.GetTransferByID(ctx, id)
}

func (tx memTransferTx) GetBikeForUpdate(ctx context.Context, id uuid.UUID) (*domain.Bike, error) {
	return tx.m.bikes.GetBikeByID(ctx, id)
}

func (tx memTransferTx) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	return tx.m.profiles.GetProfileByID(ctx, id)
}

func (tx memTransferTx) SaveTransferResolution(_ context.Context, req *domain.TransferRequest) error {
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	cp := *req
	tx.m.requests[req.ID] = &cp
	return nil
}

func (tx memTransferTx) SaveBikeOwnership(ctx context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error {
	return tx.m.bikes.SaveStatus(ctx, bike, appended)
}

type memRides struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*domain.Ride
}

func (m *memRides) CreateRide(_ context.Context, ride *domain.Ride) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	m.rides[ride.ID] = &cp
	return ride, nil
}

func (m *memRides) GetRideByID(_ context.Context, id uuid.UUID) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rides[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound("Rodada no encontrada.")
}

func (m *memRides) list(keep func(*domain.Ride) bool) []*domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Ride{}
	for _, r := range m.rides {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (m *memRides) GetRidesByOrganizerID(_ context.Context, organizerID string) ([]*domain.Ride, error) {
	return m.list(func(r *domain.Ride) bool { return r.OrganizerID == organizerID }), nil
}

func (m *memRides) GetUpcomingRides(_ context.Context, from time.Time, limit int) ([]*domain.Ride, error) {
	out := m.list(func(r *domain.Ride) bool { return !r.StartsAt.Before(from) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRides) UpdateRide(_ context.Context, ride *domain.Ride) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return nil, domain.ErrNotFound("Rodada no encontrada.")
	}
	cp := *ride
	cp.OrganizerID = stored.OrganizerID
	cp.CreatedAt = stored.CreatedAt
	m.rides[ride.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRides) DeleteRide(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return domain.ErrNotFound("Rodada no encontrada.")
	}
	delete(m.rides, id)
	return nil
}

type memContent struct {
	mu      sync.Mutex
	content *domain.HomepageContent
}

func (m *memContent) GetHomepageContent(context.Context) (*domain.HomepageContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.content == nil {
		return nil, domain.ErrNotFound("Contenido no encontrado.")
	}
	cp := *m.content
	return &cp, nil
}

func (m *memContent) SaveHomepageContent(_ context.Context, content *domain.HomepageContent) (*domain.HomepageContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *content
	m.content = &cp
	return content, nil
}

func TestRouter_TransferFlow(t *testing.T) {
	engine := newTestRouter(t)

	require.Equal(t, http.StatusCreated, do(engine, http.MethodPost, "/me", "cyclist-token", `{"firstName":"Uno"}`).Code)
	require.Equal(t, http.StatusCreated, do(engine, http.MethodPost, "/me", "dos-token", `{"firstName":"Dos"}`).Code)

	w := do(engine, http.MethodPost, "/bikes", "cyclist-token", `{"serialNumber":"TR-1","brand":"Specialized","model":"Rockhopper"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	bikeID := decodeMap(t, w)["id"].(string)

	t.Run("initiate rejections", func(t *testing.T) {
		tests := []struct {
			name       string
			token      string
			body       string
			wantStatus int
		}{
			{"missing fields", "cyclist-token", `{"bikeId":"` + bikeID + `"}`, http.StatusBadRequest},
			{"invalid email", "cyclist-token", `{"bikeId":"` + bikeID + `","recipientEmail":"no-es-correo"}`, http.StatusBadRequest},
			{"to yourself", "cyclist-token", `{"bikeId":"` + bikeID + `","recipientEmail":"UNO@example.com"}`, http.StatusBadRequest},
			{"not the owner", "dos-token", `{"bikeId":"` + bikeID + `","recipientEmail":"tres@example.com"}`, http.StatusForbidden},
			{"unknown bike", "cyclist-token", `{"bikeId":"` + uuid.NewString() + `","recipientEmail":"dos@example.com"}`, http.StatusForbidden},
			{"without token", "", `{"bikeId":"` + bikeID + `","recipientEmail":"dos@example.com"}`, http.StatusUnauthorized},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := do(engine, http.MethodPost, "/transfers", tt.token, tt.body)
				assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			})
		}
	})

	body := `{"bikeId":"` + bikeID + `","recipientEmail":"Dos@Example.com","transferDocumentUrl":"https://files.example.com/private/factura.pdf"}`
	w = do(engine, http.MethodPost, "/transfers", "cyclist-token", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transfer := decodeMap(t, w)["transfer"].(map[string]interface{})
	transferID := transfer["id"].(string)
	assert.Equal(t, "dos@example.com", transfer["toUserEmail"])
	assert.Equal(t, "pending", transfer["status"])

	w = do(engine, http.MethodPost, "/transfers", "cyclist-token", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, token := range []string{"cyclist-token", "dos-token"} {
		w = do(engine, http.MethodGet, "/transfers", token, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decodeMap(t, w)["count"], token)
	}

	t.Run("respond rejections", func(t *testing.T) {
		tests := []struct {
			name       string
			token      string
			id         string
			body       string
			wantStatus int
		}{
			{"sender cannot accept", "cyclist-token", transferID, `{"action":"accepted"}`, http.StatusForbidden},
			{"recipient cannot cancel", "dos-token", transferID, `{"action":"cancelled"}`, http.StatusForbidden},
			{"unknown action", "dos-token", transferID, `{"action":"robar"}`, http.StatusBadRequest},
			{"missing action", "dos-token", transferID, `{}`, http.StatusBadRequest},
			{"malformed id", "dos-token", "abc", `{"action":"accepted"}`, http.StatusBadRequest},
			{"unknown request", "dos-token", uuid.NewString(), `{"action":"accepted"}`, http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := do(engine, http.MethodPost, "/transfers/"+tt.id+"/respond", tt.token, tt.body)
				assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			})
		}
	})

	w = do(engine, http.MethodPost, "/transfers/"+transferID+"/respond", "dos-token", `{"action":"accepted"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "accepted", decodeMap(t, w)["transfer"].(map[string]interface{})["status"])

	w = do(engine, http.MethodPost, "/transfers/"+transferID+"/respond", "dos-token", `{"action":"rejected"}`)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = do(engine, http.MethodGet, "/bikes/"+bikeID, "dos-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-2", decodeMap(t, w)["ownerId"])
	assert.Equal(t, http.StatusForbidden, do(engine, http.MethodGet, "/bikes/"+bikeID, "cyclist-token", "").Code)

	w = do(engine, http.MethodGet, "/public/bikes/serial/TR-1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "@example.com")
	assert.NotContains(t, w.Body.String(), "factura.pdf")
	history := decodeMap(t, w)["bike"].(map[string]interface{})["statusHistory"].([]interface{})
	require.Len(t, history, 2)
	last := history[1].(map[string]interface{})
	assert.Equal(t, string(domain.StatusTransferred), last["status"])
	assert.Equal(t, domain.NoteTransferCompleted, last["notes"])
}

func TestRouter_RideFlow(t *testing.T) {
	engine := newTestRouter(t)
	startsAt := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	w := do(engine, http.MethodPost, "/rides", "shop-token", `{"title":"Rodada nocturna","startsAt":"`+startsAt+`","difficulty":"easy","distanceKm":12}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rideID := decodeMap(t, w)["rideId"].(string)

	tests := []struct {
		name       string
		token      string
		body       string
		wantStatus int
	}{
		{"cyclists cannot organize", "cyclist-token", `{"title":"Mía","startsAt":"` + startsAt + `"}`, http.StatusForbidden},
		{"title is required", "shop-token", `{"startsAt":"` + startsAt + `"}`, http.StatusBadRequest},
		{"unknown difficulty", "shop-token", `{"title":"X","startsAt":"` + startsAt + `","difficulty":"extrema"}`, http.StatusBadRequest},
		{"unknown ride", "shop-token", `{"id":"` + uuid.NewString() + `","title":"X","startsAt":"` + startsAt + `"}`, http.StatusNotFound},
		{"without token", "", `{"title":"X","startsAt":"` + startsAt + `"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(engine, http.MethodPost, "/rides", tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w = do(engine, http.MethodGet, "/public/rides", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeMap(t, w)["count"])

	w = do(engine, http.MethodPost, "/rides", "admin-token", `{"id":"`+rideID+`","title":"Rodada dominical","startsAt":"`+startsAt+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ride := decodeMap(t, w)["ride"].(map[string]interface{})
	assert.Equal(t, "Rodada dominical", ride["title"])
	assert.Equal(t, "shop-1", ride["organizerId"])

	w = do(engine, http.MethodGet, "/rides/mine", "shop-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeMap(t, w)["count"])

	assert.Equal(t, http.StatusForbidden, do(engine, http.MethodDelete, "/rides/"+rideID, "cyclist-token", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(engine, http.MethodDelete, "/rides/abc", "shop-token", "").Code)
	assert.Equal(t, http.StatusNotFound, do(engine, http.MethodDelete, "/rides/"+uuid.NewString(), "shop-token", "").Code)

	w = do(engine, http.MethodDelete, "/rides/"+rideID, "shop-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rodada eliminada.", decodeMap(t, w)["message"])

	w = do(engine, http.MethodGet, "/public/rides", "", "")
	assert.Equal(t, float64(0), decodeMap(t, w)["count"])
}

func TestRouter_HomepageContent(t *testing.T) {
	engine := newTestRouter(t)

	w := do(engine, http.MethodGet, "/public/content/homepage", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decodeMap(t, w)["title"])

	w = do(engine, http.MethodPut, "/content/homepage", "admin-token", `{"title":" Registra tu bici ","heroImageKey":"content/homepage/a.jpg"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decodeMap(t, w)
	assert.Equal(t, "Registra tu bici", saved["title"])
	assert.Equal(t, "https://cdn.test/content/homepage/a.jpg", saved["heroImageUrl"])
	assert.Equal(t, "admin-1", saved["updatedBy"])

	w = do(engine, http.MethodGet, "/public/content/homepage", "", "")
	assert.Equal(t, "Registra tu bici", decodeMap(t, w)["title"])

	w = do(engine, http.MethodPut, "/content/homepage", "admin-token", `{"title":"X","heroImageKey":"bikes/a.jpg"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	t.Run("upload url", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/content/homepage/upload-url", "admin-token", `{"contentType":"image/gif"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(engine, http.MethodPost, "/content/homepage/upload-url", "admin-token", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(engine, http.MethodPost, "/content/homepage/upload-url", "admin-token", `{"contentType":"image/png"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		target := decodeMap(t, w)
		key := target["storageKey"].(string)
		assert.True(t, strings.HasPrefix(key, "content/homepage/"), key)
		assert.True(t, strings.HasSuffix(key, ".png"), key)
		assert.Equal(t, "https://cdn.test/"+key, target["publicUrl"])
	})
}

func TestRouter_AdminAccounts(t *testing.T) {
	engine := newTestRouter(t)

	w := do(engine, http.MethodPost, "/admin/accounts/bikeshop", "admin-token", `{"email":"Taller2@Example.com","organizationName":"Bicis del Centro"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeMap(t, w)
	accountID := created["accountId"].(string)
	_, err := uuid.Parse(accountID)
	require.NoError(t, err)
	assert.Equal(t, "bikeshop", created["profile"].(map[string]interface{})["role"])

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"duplicate email", "/admin/accounts/ngo", `{"email":"taller2@example.com","organizationName":"Otra"}`, http.StatusConflict},
		{"missing organization", "/admin/accounts/ngo", `{"email":"ong@example.com"}`, http.StatusBadRequest},
		{"missing email", "/admin/accounts/bikeshop", `{"organizationName":"Sin correo"}`, http.StatusBadRequest},
		{"invalid email", "/admin/accounts/bikeshop", `{"email":"nada","organizationName":"Sin correo"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(engine, http.MethodPost, tt.path, "admin-token", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w = do(engine, http.MethodGet, "/admin/users?role=bikeshop", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeMap(t, w)["count"])
	assert.Equal(t, http.StatusBadRequest, do(engine, http.MethodGet, "/admin/users?limit=diez", "admin-token", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(engine, http.MethodGet, "/admin/users?role=jefe", "admin-token", "").Code)

	t.Run("role change", func(t *testing.T) {
		w := do(engine, http.MethodPut, "/admin/users/"+accountID+"/role", "admin-token", `{"role":"ngo"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, decodeMap(t, w)["message"], "nuevo token")

		w = do(engine, http.MethodGet, "/admin/users?role=ngo", "admin-token", "")
		assert.Equal(t, float64(1), decodeMap(t, w)["count"])

		assert.Equal(t, http.StatusBadRequest, do(engine, http.MethodPut, "/admin/users/"+accountID+"/role", "admin-token", `{"role":"jefe"}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(engine, http.MethodPut, "/admin/users/"+accountID+"/role", "admin-token", `{}`).Code)
		assert.Equal(t, http.StatusNotFound, do(engine, http.MethodPut, "/admin/users/nadie/role", "admin-token", `{"role":"ngo"}`).Code)
	})

	t.Run("account deletion", func(t *testing.T) {
		assert.Equal(t, http.StatusPreconditionFailed, do(engine, http.MethodDelete, "/admin/users/admin-1", "admin-token", "").Code)
		assert.Equal(t, http.StatusNotFound, do(engine, http.MethodDelete, "/admin/users/nadie", "admin-token", "").Code)

		w := do(engine, http.MethodDelete, "/admin/users/"+accountID, "admin-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decodeMap(t, w)["message"], accountID)

		w = do(engine, http.MethodGet, "/admin/users?role=ngo", "admin-token", "")
		assert.Equal(t, float64(0), decodeMap(t, w)["count"])
	})
}

func TestRouter_AttributionStats(t *testing.T) {
	engine := newTestRouter(t)

	w := do(engine, http.MethodPost, "/shop/customers", "shop-token", `{"email":"Cliente@Example.com","firstName":"Cli"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID := decodeMap(t, w)["accountId"].(string)

	w = do(engine, http.MethodPost, "/bikes", "shop-token", `{"ownerId":"`+customerID+`","serialNumber":"SHOP-1","brand":"Benotto","model":"Aro 29"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bike := decodeMap(t, w)
	assert.Equal(t, customerID, bike["ownerId"])
	assert.Equal(t, "shop-1", bike["registeredByShopId"])

	for _, tt := range []struct{ token, query string }{
		{"shop-token", ""},
		{"admin-token", "?attributionId=shop-1"},
	} {
		w := do(engine, http.MethodGet, "/analytics"+tt.query, tt.token, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		stats := decodeMap(t, w)
		assert.Equal(t, "shop-1", stats["attributionId"])
		assert.Equal(t, float64(1), stats["attributedUsers"])
		assert.Equal(t, float64(1), stats["usersRegistered"])
		assert.Equal(t, float64(1), stats["bikesRegistered"])
		assert.Equal(t, float64(0), stats["bikesStolen"])
	}

	w = do(engine, http.MethodGet, "/analytics?attributionId=otro-taller", "shop-token", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(engine, http.MethodGet, "/analytics?from=2026-05-02&to=2026-05-01", "shop-token", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(engine, http.MethodPost, "/bikes", "shop-token", `{"ownerId":"ajeno","serialNumber":"SHOP-2","brand":"Benotto","model":"Aro 26"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
