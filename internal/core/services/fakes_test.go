package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func cloneBike(b *domain.Bike) *domain.Bike {
	c := *b
	c.StatusHistory = append([]domain.StatusHistoryEntry(nil), b.StatusHistory...)
	c.PhotoURLs = append([]string{}, b.PhotoURLs...)
	if b.TheftDetails != nil {
		td := *b.TheftDetails
		c.TheftDetails = &td
	}
	return &c
}

func cloneTransfer(t *domain.TransferRequest) *domain.TransferRequest {
	c := *t
	return &c
}

func cloneProfile(p *domain.UserProfile) *domain.UserProfile {
	c := *p
	return &c
}

type fakeBikeRepo struct {
	mu    sync.Mutex
	bikes map[uuid.UUID]*domain.Bike
	err   error

	ownerBatches int
}

func newFakeBikeRepo() *fakeBikeRepo {
	return &fakeBikeRepo{bikes: map[uuid.UUID]*domain.Bike{}}
}

func (r *fakeBikeRepo) CreateBike(_ context.Context, bike *domain.Bike) (*domain.Bike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.bikes[bike.ID] = cloneBike(bike)
	return cloneBike(bike), nil
}

func (r *fakeBikeRepo) GetBikeByID(_ context.Context, bikeID uuid.UUID) (*domain.Bike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	bike, ok := r.bikes[bikeID]
	if !ok {
		return nil, domain.ErrNotFound("bike not found")
	}
	return cloneBike(bike), nil
}

func (r *fakeBikeRepo) GetBikeBySerial(_ context.Context, serial string) (*domain.Bike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, bike := range r.bikes {
		if bike.SerialNumber == serial {
			return cloneBike(bike), nil
		}
	}
	return nil, domain.ErrNotFound("bike not found")
}

func (r *fakeBikeRepo) SerialExists(_ context.Context, serial string, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for id, bike := range r.bikes {
		if id != excludeID && bike.SerialNumber == serial {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBikeRepo) GetBikesByOwnerID(_ context.Context, ownerID string) ([]*domain.Bike, error) {
	return r.GetBikesByOwnerIDs(context.Background(), []string{ownerID})
}

func (r *fakeBikeRepo) GetBikesByOwnerIDs(_ context.Context, ownerIDs []string) ([]*domain.Bike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerBatches++
	if r.err != nil {
		return nil, r.err
	}
	wanted := map[string]bool{}
	for _, id := range ownerIDs {
		wanted[id] = true
	}
	bikes := []*domain.Bike{}
	for _, bike := range r.bikes {
		if wanted[bike.OwnerID] {
			bikes = append(bikes, cloneBike(bike))
		}
	}
	sort.Slice(bikes, func(i, j int) bool { return bikes[i].CreatedAt.After(bikes[j].CreatedAt) })
	return bikes, nil
}

func (r *fakeBikeRepo) UpdateBike(_ context.Context, bikeID uuid.UUID, u domain.BikeUpdate) (*domain.Bike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	bike, ok := r.bikes[bikeID]
	if !ok {
		return nil, domain.ErrNotFound("bike not found")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&bike.SerialNumber, u.SerialNumber)
	set(&bike.Brand, u.Brand)
	set(&bike.Model, u.Model)
	set(&bike.Color, u.Color)
	set(&bike.Location, u.Location)
	set(&bike.BikeType, u.BikeType)
	clearable := func(dst **string, v *string) {
		switch {
		case v == nil:
		case *v == "":
			*dst = nil
		default:
			*dst = v
		}
	}
	clearable(&bike.Description, u.Description)
	clearable(&bike.OwnershipDocumentURL, u.OwnershipDocumentURL)
	if u.PhotoURLs != nil {
		bike.PhotoURLs = u.PhotoURLs
	}
	return cloneBike(bike), nil
}

func (r *fakeBikeRepo) SaveStatus(_ context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.applyStatus(bike, appended)
	return nil
}

func (r *fakeBikeRepo) applyStatus(bike *domain.Bike, appended []domain.StatusHistoryEntry) {
	stored, ok := r.bikes[bike.ID]
	if !ok {
		return
	}
	stored.Status = bike.Status
	stored.TheftDetails = cloneBike(bike).TheftDetails
	stored.StatusHistory = append(stored.StatusHistory, appended...)
	stored.UpdatedAt = bike.UpdatedAt
}

func (r *fakeBikeRepo) UpdateOwnerContact(_ context.Context, ownerID string, contact domain.OwnerContact) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var ids []uuid.UUID
	for id, bike := range r.bikes {
		if bike.OwnerID == ownerID {
			bike.SetOwner(ownerID, contact)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeBikeRepo) stored(id uuid.UUID) *domain.Bike {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneBike(r.bikes[id])
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
	bikes    *fakeBikeRepo
	err      error
}

func newFakeProfileRepo(bikes *fakeBikeRepo) *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*domain.UserProfile{}, bikes: bikes}
}

func (r *fakeProfileRepo) put(p *domain.UserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = cloneProfile(p)
}

func (r *fakeProfileRepo) CreateProfile(_ context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.profiles {
		if p.ID == profile.ID || p.Email == profile.Email {
			return nil, domain.ErrAlreadyExists("profile already exists")
		}
	}
	r.profiles[profile.ID] = cloneProfile(profile)
	return cloneProfile(profile), nil
}

func (r *fakeProfileRepo) GetProfileByID(_ context.Context, userID string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound("profile not found")
	}
	return cloneProfile(p), nil
}

func (r *fakeProfileRepo) UpdateProfile(_ context.Context, userID string, u domain.ProfileUpdate) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound("profile not found")
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.OrganizationName != nil {
		p.OrganizationName = u.OrganizationName
	}
	return cloneProfile(p), nil
}

func (r *fakeProfileRepo) UpdateRole(_ context.Context, userID string, role domain.UserRole) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound("profile not found")
	}
	p.Role = role
	return cloneProfile(p), nil
}

func (r *fakeProfileRepo) IncrementReferralCount(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		p.ReferralCount++
	}
	return nil
}

func (r *fakeProfileRepo) ListProfiles(_ context.Context, role domain.UserRole, limit, offset int) ([]*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var all []*domain.UserProfile
	for _, p := range r.profiles {
		if role == "" || p.Role == role {
			all = append(all, cloneProfile(p))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return []*domain.UserProfile{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeProfileRepo) ListAttributedProfiles(_ context.Context, attributionID string) ([]*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var found []*domain.UserProfile
	for _, p := range r.profiles {
		byShop := p.RegisteredByShopID != nil && *p.RegisteredByShopID == attributionID
		byReferral := p.ReferrerID != nil && *p.ReferrerID == attributionID
		if byShop || byReferral {
			found = append(found, cloneProfile(p))
		}
	}
	return found, nil
}

func (r *fakeProfileRepo) DeleteAccount(_ context.Context, userID string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.profiles[userID]; !ok {
		return nil, domain.ErrNotFound("profile not found")
	}
	delete(r.profiles, userID)

	r.bikes.mu.Lock()
	defer r.bikes.mu.Unlock()
	var ids []uuid.UUID
	for id, bike := range r.bikes.bikes {
		if bike.OwnerID == userID {
			delete(r.bikes.bikes, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeTransferRepo stages every write made inside RunInTx and applies them only
// when fn returns nil.
type fakeTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]*domain.TransferRequest
	bikes     *fakeBikeRepo
	profiles  *fakeProfileRepo

	failResolution error
}

func newFakeTransferRepo(bikes *fakeBikeRepo, profiles *fakeProfileRepo) *fakeTransferRepo {
	return &fakeTransferRepo{
		transfers: map[uuid.UUID]*domain.TransferRequest{},
		bikes:     bikes,
		profiles:  profiles,
	}
}

func (r *fakeTransferRepo) CreateTransfer(_ context.Context, req *domain.TransferRequest) (*domain.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[req.ID] = cloneTransfer(req)
	return cloneTransfer(req), nil
}

func (r *fakeTransferRepo) GetTransferByID(_ context.Context, transferID uuid.UUID) (*domain.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.transfers[transferID]
	if !ok {
		return nil, domain.ErrNotFound("transfer not found")
	}
	return cloneTransfer(req), nil
}

func (r *fakeTransferRepo) HasPendingTransfer(_ context.Context, bikeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.transfers {
		if req.BikeID == bikeID && req.Status == domain.TransferPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTransferRepo) GetTransfersBySender(_ context.Context, senderID string) ([]*domain.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*domain.TransferRequest
	for _, req := range r.transfers {
		if req.FromOwnerID == senderID {
			found = append(found, cloneTransfer(req))
		}
	}
	return found, nil
}

func (r *fakeTransferRepo) GetTransfersByRecipientEmail(_ context.Context, email string) ([]*domain.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*domain.TransferRequest
	for _, req := range r.transfers {
		if req.ToUserEmail == email {
			found = append(found, cloneTransfer(req))
		}
	}
	return found, nil
}

func (r *fakeTransferRepo) RunInTx(ctx context.Context, fn func(tx ports.TransferTx) error) error {
	tx := &fakeTransferTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}
	r.mu.Lock()
	for _, req := range tx.resolutions {
		r.transfers[req.ID] = req
	}
	r.mu.Unlock()

	r.bikes.mu.Lock()
	defer r.bikes.mu.Unlock()
	for _, w := range tx.ownership {
		r.bikes.applyStatus(w.bike, w.appended)
		if stored, ok := r.bikes.bikes[w.bike.ID]; ok {
			stored.SetOwner(w.bike.OwnerID, domain.OwnerContact{
				FirstName: w.bike.OwnerFirstName,
				LastName:  w.bike.OwnerLastName,
				Email:     w.bike.OwnerEmail,
				Phone:     w.bike.OwnerPhone,
			})
		}
	}
	return nil
}

type ownershipWrite struct {
	bike     *domain.Bike
	appended []domain.StatusHistoryEntry
}

type fakeTransferTx struct {
	repo        *fakeTransferRepo
	resolutions []*domain.TransferRequest
	ownership   []ownershipWrite
}

func (tx *fakeTransferTx) GetTransferForUpdate(ctx context.Context, transferID uuid.UUID) (*domain.TransferRequest, error) {
	return tx.repo.GetTransferByID(ctx, transferID)
}

func (tx *fakeTransferTx) GetBikeForUpdate(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error) {
	return tx.repo.bikes.GetBikeByID(ctx, bikeID)
}

func (tx *fakeTransferTx) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return tx.repo.profiles.GetProfileByID(ctx, userID)
}

func (tx *fakeTransferTx) SaveTransferResolution(_ context.Context, req *domain.TransferRequest) error {
	if tx.repo.failResolution != nil {
		return tx.repo.failResolution
	}
	tx.resolutions = append(tx.resolutions, cloneTransfer(req))
	return nil
}

func (tx *fakeTransferTx) SaveBikeOwnership(_ context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error {
	tx.ownership = append(tx.ownership, ownershipWrite{bike: cloneBike(bike), appended: appended})
	return nil
}

type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*domain.Ride
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{rides: map[uuid.UUID]*domain.Ride{}}
}

func (r *fakeRideRepo) CreateRide(_ context.Context, ride *domain.Ride) (*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *ride
	r.rides[ride.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeRideRepo) GetRideByID(_ context.Context, rideID uuid.UUID) (*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok {
		return nil, domain.ErrNotFound("ride not found")
	}
	c := *ride
	return &c, nil
}

func (r *fakeRideRepo) GetRidesByOrganizerID(_ context.Context, organizerID string) ([]*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rides := []*domain.Ride{}
	for _, ride := range r.rides {
		if ride.OrganizerID == organizerID {
			c := *ride
			rides = append(rides, &c)
		}
	}
	return rides, nil
}

func (r *fakeRideRepo) GetUpcomingRides(_ context.Context, from time.Time, limit int) ([]*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rides := []*domain.Ride{}
	for _, ride := range r.rides {
		if ride.IsUpcoming(from) {
			c := *ride
			rides = append(rides, &c)
		}
	}
	sort.Slice(rides, func(i, j int) bool { return rides[i].StartsAt.Before(rides[j].StartsAt) })
	if len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

func (r *fakeRideRepo) UpdateRide(_ context.Context, ride *domain.Ride) (*domain.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rides[ride.ID]; !ok {
		return nil, domain.ErrNotFound("ride not found")
	}
	c := *ride
	r.rides[ride.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeRideRepo) DeleteRide(_ context.Context, rideID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rides[rideID]; !ok {
		return domain.ErrNotFound("ride not found")
	}
	delete(r.rides, rideID)
	return nil
}

type fakeContentRepo struct {
	content *domain.HomepageContent
}

func (r *fakeContentRepo) GetHomepageContent(context.Context) (*domain.HomepageContent, error) {
	if r.content == nil {
		return nil, domain.ErrNotFound("content not found")
	}
	c := *r.content
	return &c, nil
}

func (r *fakeContentRepo) SaveHomepageContent(_ context.Context, content *domain.HomepageContent) (*domain.HomepageContent, error) {
	c := *content
	r.content = &c
	out := c
	return &out, nil
}

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (e *fakeEvents) Publish(_ context.Context, event domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) types() []domain.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]domain.EventType, 0, len(e.events))
	for _, ev := range e.events {
		types = append(types, ev.Type)
	}
	return types
}

type fakeStorage struct {
	deleted []string
}

func (s *fakeStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://upload.test/" + storageKey, time.Now().Add(expiresIn), nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, storageKey string) error {
	s.deleted = append(s.deleted, storageKey)
	return nil
}

func (s *fakeStorage) PublicURL(storageKey string) string {
	return "https://cdn.test/" + storageKey
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

// testEnv wires every service to the same in-memory stores.
type testEnv struct {
	bikeRepo     *fakeBikeRepo
	profileRepo  *fakeProfileRepo
	transferRepo *fakeTransferRepo
	rideRepo     *fakeRideRepo
	contentRepo  *fakeContentRepo
	cache        *fakeCache
	events       *fakeEvents
	storage      *fakeStorage

	bikes     *BikeService
	lifecycle *LifecycleService
	transfers *TransferService
	profiles  *ProfileService
	analytics *AnalyticsService
	rides     *RideService
	content   *ContentService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		bikeRepo:    newFakeBikeRepo(),
		rideRepo:    newFakeRideRepo(),
		contentRepo: &fakeContentRepo{},
		cache:       newFakeCache(),
		events:      &fakeEvents{},
		storage:     &fakeStorage{},
	}
	env.profileRepo = newFakeProfileRepo(env.bikeRepo)
	env.transferRepo = newFakeTransferRepo(env.bikeRepo, env.profileRepo)

	validate := validator.New()
	logger := nopLogger{}
	env.bikes = NewBikeService(env.bikeRepo, env.profileRepo, logger, validate, env.cache, env.events, env.storage)
	env.lifecycle = NewLifecycleService(env.bikeRepo, logger, validate, env.cache, env.events)
	env.transfers = NewTransferService(env.transferRepo, env.bikeRepo, logger, validate, env.cache, env.events)
	env.profiles = NewProfileService(env.profileRepo, env.bikes, logger, validate, env.cache, env.events)
	env.analytics = NewAnalyticsService(env.profileRepo, env.bikeRepo, logger)
	env.rides = NewRideService(env.rideRepo, logger, validate)
	env.content = NewContentService(env.contentRepo, env.storage, logger, validate)
	return env
}

func (env *testEnv) seedUser(id, email string, role domain.UserRole) *domain.TokenPayload {
	now := time.Now().UTC()
	env.profileRepo.put(&domain.UserProfile{
		ID:        id,
		Role:      role,
		FirstName: "Nombre " + id,
		LastName:  "Apellido",
		Email:     email,
		Phone:     "555-0000",
		CreatedAt: now,
		UpdatedAt: now,
	})
	return &domain.TokenPayload{ID: "tok-" + id, UserID: id, Email: email, Role: role}
}

func (env *testEnv) createBike(caller *domain.TokenPayload, serial string) *domain.Bike {
	bike, err := env.bikes.CreateBike(context.Background(), caller, CreateBikeInput{
		SerialNumber: serial,
		Brand:        "Trek",
		Model:        "Marlin 7",
	})
	if err != nil {
		panic(err)
	}
	return bike
}
