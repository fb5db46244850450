package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sharebite/internal/errs"
	"sharebite/internal/model"
	"sharebite/internal/repository"
)

// ---- fakes ----

type fakeLocal struct {
	profile *model.UserProfile
	recipes []model.Recipe
	plan    []model.MealPlanItem
	hh      *model.Household
}

var _ repository.LocalStore = (*fakeLocal)(nil)

func (f *fakeLocal) Profile(context.Context) (*model.UserProfile, error) { return f.profile, nil }
func (f *fakeLocal) SaveProfile(_ context.Context, p model.UserProfile) error {
	f.profile = &p
	return nil
}
func (f *fakeLocal) Recipes(context.Context) ([]model.Recipe, error) {
	return append([]model.Recipe(nil), f.recipes...), nil
}
func (f *fakeLocal) SaveRecipes(_ context.Context, rs []model.Recipe) error {
	f.recipes = append([]model.Recipe(nil), rs...)
	return nil
}
func (f *fakeLocal) Plan(context.Context) ([]model.MealPlanItem, error) {
	return append([]model.MealPlanItem(nil), f.plan...), nil
}
func (f *fakeLocal) SavePlan(_ context.Context, items []model.MealPlanItem) error {
	f.plan = append([]model.MealPlanItem(nil), items...)
	return nil
}
func (f *fakeLocal) Household(context.Context) (*model.Household, error) { return f.hh, nil }
func (f *fakeLocal) SaveHousehold(_ context.Context, h model.Household) error {
	f.hh = &h
	return nil
}
func (f *fakeLocal) DeleteHousehold(context.Context) error {
	f.hh = nil
	return nil
}
func (f *fakeLocal) Close() error { return nil }

type fakeRemote struct {
	recipes    map[string]model.Recipe       // id -> recipe (single household under test)
	plans      map[string]model.MealPlanItem // id -> item
	households map[string]model.Household    // id -> household

	listIDsErr    error
	deleteErr     error
	upsertErrs    int // number of upsert calls that fail before succeeding
	upsertErr     error
	nameErr       error
	createErrs    []error // consumed per CreateHousehold call
	upsertCalls   int
	deletedIDs    []string
}

var _ repository.RemoteStore = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		recipes:    map[string]model.Recipe{},
		plans:      map[string]model.MealPlanItem{},
		households: map[string]model.Household{},
	}
}

func (f *fakeRemote) Recipes(_ context.Context, _ string) ([]model.Recipe, error) {
	if f.listIDsErr != nil {
		return nil, f.listIDsErr
	}
	out := []model.Recipe{}
	for _, r := range f.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRemote) RecipeIDs(_ context.Context, _ string) ([]string, error) {
	if f.listIDsErr != nil {
		return nil, f.listIDsErr
	}
	var ids []string
	for id := range f.recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeRemote) UpsertRecipes(_ context.Context, _ string, rs []model.Recipe) error {
	f.upsertCalls++
	if f.upsertErrs > 0 {
		f.upsertErrs--
		return errors.New("transient upsert failure")
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, r := range rs {
		f.recipes[r.ID] = r
	}
	return nil
}

func (f *fakeRemote) DeleteRecipes(_ context.Context, _ string, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.recipes, id)
		f.deletedIDs = append(f.deletedIDs, id)
	}
	return nil
}

func (f *fakeRemote) Plan(_ context.Context, _ string) ([]model.MealPlanItem, error) {
	out := []model.MealPlanItem{}
	for _, p := range f.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRemote) PlanIDs(_ context.Context, _ string) ([]string, error) {
	var ids []string
	for id := range f.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeRemote) UpsertPlan(_ context.Context, _ string, items []model.MealPlanItem) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, p := range items {
		f.plans[p.ID] = p
	}
	return nil
}

func (f *fakeRemote) DeletePlanItems(_ context.Context, _ string, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.plans, id)
	}
	return nil
}

func (f *fakeRemote) CreateHousehold(_ context.Context, h model.Household) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.households[h.ID] = h
	return nil
}

func (f *fakeRemote) HouseholdByCode(_ context.Context, code string) (*model.Household, error) {
	for _, h := range f.households {
		if h.Code == code {
			hh := h
			return &hh, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) HouseholdName(_ context.Context, id string) (string, error) {
	if f.nameErr != nil {
		return "", f.nameErr
	}
	h, ok := f.households[id]
	if !ok {
		return "", errs.ErrNotFound
	}
	return h.Name, nil
}

func (f *fakeRemote) RenameHousehold(_ context.Context, id, name string) error {
	h, ok := f.households[id]
	if !ok {
		return errs.ErrNotFound
	}
	h.Name = name
	f.households[id] = h
	return nil
}

type fakeNotifier struct {
	householdID string
	onEvent     func(repository.Event)
	sub         *fakeSubscription
}

var _ repository.Notifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) Subscribe(_ context.Context, householdID string, onEvent func(repository.Event)) (repository.Subscription, error) {
	f.householdID = householdID
	f.onEvent = onEvent
	f.sub = &fakeSubscription{}
	return f.sub, nil
}

type fakeSubscription struct{ unsubscribed bool }

func (s *fakeSubscription) Unsubscribe() { s.unsubscribed = true }

func newEngine(t *testing.T, local *fakeLocal, remote *fakeRemote, notifier repository.Notifier) *Storage {
	t.Helper()
	var r repository.RemoteStore
	if remote != nil {
		r = remote
	}
	s, err := New(context.Background(), local, r, notifier, zap.NewNop())
	require.NoError(t, err)
	return s
}

// ---- load path ----

func TestLoadData_LocalMode(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{
		recipes: []model.Recipe{{ID: "r1", Title: "a", Tags: []string{}}},
		plan:    []model.MealPlanItem{{ID: "p1", Date: "2026-01-05", Type: model.MealDinner, RecipeID: "r1"}},
	}
	s := newEngine(t, local, nil, nil)

	snap, err := s.LoadData(context.Background())
	require.NoError(t, err)
	require.Equal(t, local.recipes, snap.Recipes)
	require.Equal(t, local.plan, snap.Plan)
	require.Equal(t, model.DefaultProfile(), snap.Profile)
}

func TestLoadData_BackfillsProfileFields(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{profile: &model.UserProfile{Name: "小王", Avatar: "🐸"}}
	s := newEngine(t, local, nil, nil)

	snap, err := s.LoadData(context.Background())
	require.NoError(t, err)
	require.Equal(t, "小王", snap.Profile.Name)
	require.Equal(t, model.DefaultTagline, snap.Profile.Tagline)
	require.NotNil(t, snap.Profile.Titles)
	require.Equal(t, model.DefaultTitles(), *snap.Profile.Titles)

	// in-memory only: the stored profile is untouched until the next save
	require.Empty(t, local.profile.Tagline)
}

func TestLoadData_HouseholdMode(t *testing.T) {
	t.Parallel()
	hh := model.Household{ID: "h1", Name: "旧名字", Code: "AB12CD"}
	local := &fakeLocal{hh: &hh}
	remote := newFakeRemote()
	remote.households["h1"] = model.Household{ID: "h1", Name: "新名字", Code: "AB12CD"}
	remote.recipes["r1"] = model.Recipe{ID: "r1", Title: "云端菜", Tags: []string{}}
	remote.plans["p1"] = model.MealPlanItem{ID: "p1", Date: "2026-01-05", Type: model.MealLunch, RecipeID: "r1"}
	s := newEngine(t, local, remote, nil)

	snap, err := s.LoadData(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Recipes, 1)
	require.Len(t, snap.Plan, 1)

	// the remote display name overwrote the cached pointer
	require.Equal(t, "新名字", s.GetHousehold().Name)
	require.Equal(t, "新名字", local.hh.Name)
}

func TestLoadData_RemoteFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.listIDsErr = errors.New("network down")
	remote.nameErr = errors.New("network down")
	s := newEngine(t, local, remote, nil)

	snap, err := s.LoadData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Recipes)
	require.Empty(t, snap.Recipes)
	require.NotNil(t, snap.Plan)
}

// ---- write path ----

func TestSaveRecipes_LocalWhenNoHousehold(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	s := newEngine(t, local, remote, nil)

	rs := []model.Recipe{{ID: "r1", Title: "a", Tags: []string{}}}
	require.Equal(t, SavedLocal, s.SaveRecipes(context.Background(), rs))
	require.Equal(t, rs, local.recipes)
	require.Empty(t, remote.recipes) // remote untouched

	snap, err := s.LoadData(context.Background())
	require.NoError(t, err)
	require.Equal(t, rs, snap.Recipes)
}

func TestSaveRecipes_DiffByIdentity(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.households["h1"] = model.Household{ID: "h1", Name: "家", Code: "AB12CD"}
	for _, id := range []string{"a", "b", "c"} {
		remote.recipes[id] = model.Recipe{ID: id, Tags: []string{}}
	}
	s := newEngine(t, local, remote, nil)

	st := s.SaveRecipes(context.Background(), []model.Recipe{
		{ID: "b", Title: "kept", Tags: []string{}},
		{ID: "d", Title: "new", Tags: []string{}},
	})
	require.Equal(t, Synced, st)

	ids, err := remote.RecipeIDs(context.Background(), "h1")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "d"}, ids)
	require.Equal(t, "kept", remote.recipes["b"].Title) // full-value replace
	require.ElementsMatch(t, []string{"a", "c"}, remote.deletedIDs)
}

func TestSaveRecipes_DeleteFailureIsPartial(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.recipes["stale"] = model.Recipe{ID: "stale", Tags: []string{}}
	remote.deleteErr = errors.New("network blip")
	s := newEngine(t, local, remote, nil)

	st := s.SaveRecipes(context.Background(), []model.Recipe{{ID: "r1", Tags: []string{}}})
	require.Equal(t, Partial, st)
	require.Contains(t, remote.recipes, "r1") // upsert still went through
	require.Contains(t, remote.recipes, "stale")
}

func TestSaveRecipes_TotalRemoteFailure(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.recipes["stale"] = model.Recipe{ID: "stale", Tags: []string{}}
	remote.deleteErr = errors.New("down")
	remote.upsertErr = errors.New("down")
	s := newEngine(t, local, remote, nil)

	st := s.SaveRecipes(context.Background(), []model.Recipe{{ID: "r1", Tags: []string{}}})
	require.Equal(t, Failed, st)
}

func TestSaveRecipes_UpsertRetriesTransientFailure(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.upsertErrs = 2 // fail twice, succeed on the third attempt
	s := newEngine(t, local, remote, nil)

	st := s.SaveRecipes(context.Background(), []model.Recipe{{ID: "r1", Tags: []string{}}})
	require.Equal(t, Synced, st)
	require.Equal(t, 3, remote.upsertCalls)
}

func TestSavePlan_DiffByIdentity(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.plans["old"] = model.MealPlanItem{ID: "old", Date: "2026-01-01", Type: model.MealDinner}
	s := newEngine(t, local, remote, nil)

	st := s.SavePlan(context.Background(), []model.MealPlanItem{
		{ID: "p1", Date: "2026-01-05", Type: model.MealLunch, RecipeID: "r1"},
	})
	require.Equal(t, Synced, st)
	require.NotContains(t, remote.plans, "old")
	require.Contains(t, remote.plans, "p1")
}

func TestSaveProfile_AlwaysLocal(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	s := newEngine(t, local, remote, nil)

	p := model.UserProfile{Name: "小王", Avatar: "🐸"}
	require.NoError(t, s.SaveProfile(context.Background(), p))
	require.Equal(t, p, *local.profile)
	require.Empty(t, remote.recipes)
	require.Zero(t, remote.upsertCalls)
}

// ---- household lifecycle ----

func TestCreateHousehold(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	s := newEngine(t, local, remote, nil)

	hh, err := s.CreateHousehold(context.Background(), "企鹅之家")
	require.NoError(t, err)
	require.Equal(t, "企鹅之家", hh.Name)
	require.Len(t, hh.Code, 6)
	require.Equal(t, *hh, *local.hh)
	require.Equal(t, *hh, *s.GetHousehold())
}

func TestCreateHousehold_RetriesOnCodeCollision(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	remote.createErrs = []error{errs.ErrCodeTaken, nil}
	s := newEngine(t, local, remote, nil)

	hh, err := s.CreateHousehold(context.Background(), "家")
	require.NoError(t, err)
	require.NotNil(t, hh)
}

func TestCreateHousehold_FailureIsSurfaced(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	remote.createErrs = []error{errors.New("insert denied")}
	s := newEngine(t, local, remote, nil)

	_, err := s.CreateHousehold(context.Background(), "家")
	require.Error(t, err)
	require.Nil(t, local.hh) // membership not adopted
}

func TestJoinHousehold_UnknownCode(t *testing.T) {
	t.Parallel()
	prior := model.Household{ID: "h0", Name: "旧家", Code: "OLD123"}
	local := &fakeLocal{hh: &prior}
	remote := newFakeRemote()
	s := newEngine(t, local, remote, nil)

	hh, err := s.JoinHousehold(context.Background(), "NOPE12")
	require.NoError(t, err)
	require.Nil(t, hh)
	require.Equal(t, prior, *s.GetHousehold()) // pointer unchanged
}

func TestJoinHousehold_AdoptsPointer(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	remote.households["h1"] = model.Household{ID: "h1", Name: "企鹅之家", Code: "AB12CD"}
	s := newEngine(t, local, remote, nil)

	hh, err := s.JoinHousehold(context.Background(), "ab12cd") // codes normalize to upper case
	require.NoError(t, err)
	require.NotNil(t, hh)
	require.Equal(t, "h1", hh.ID)
	require.Equal(t, *hh, *local.hh)
}

func TestLeaveHousehold_LocalOnly(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.households["h1"] = model.Household{ID: "h1", Name: "家", Code: "AB12CD"}
	remote.recipes["r1"] = model.Recipe{ID: "r1", Tags: []string{}}
	s := newEngine(t, local, remote, nil)

	require.NoError(t, s.LeaveHousehold(context.Background()))
	require.Nil(t, s.GetHousehold())
	require.Nil(t, local.hh)
	// household data persists for other members
	require.Contains(t, remote.households, "h1")
	require.Contains(t, remote.recipes, "r1")
}

func TestUpdateHouseholdName(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "旧", Code: "AB12CD"}}
	remote := newFakeRemote()
	remote.households["h1"] = model.Household{ID: "h1", Name: "旧", Code: "AB12CD"}
	s := newEngine(t, local, remote, nil)

	require.NoError(t, s.UpdateHouseholdName(context.Background(), "h1", "新"))
	require.Equal(t, "新", remote.households["h1"].Name)
	require.Equal(t, "新", s.GetHousehold().Name)
	require.Equal(t, "新", local.hh.Name)
}

func TestSyncLocalToCloud_NeverDeletes(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	remote.recipes["other-member"] = model.Recipe{ID: "other-member", Tags: []string{}}
	s := newEngine(t, local, remote, nil)

	err := s.SyncLocalToCloud(context.Background(), "h1",
		[]model.Recipe{{ID: "mine", Tags: []string{}}},
		[]model.MealPlanItem{{ID: "p1", Date: "2026-01-05", Type: model.MealSnack}})
	require.NoError(t, err)
	require.Contains(t, remote.recipes, "other-member")
	require.Contains(t, remote.recipes, "mine")
	require.Contains(t, remote.plans, "p1")
	require.Empty(t, remote.deletedIDs)
}

// End-to-end: local recipe, adopt a household, merge, then delete everywhere.
func TestScenario_LocalToHouseholdAndDelete(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{}
	remote := newFakeRemote()
	s := newEngine(t, local, remote, nil)

	require.Equal(t, SavedLocal, s.SaveRecipes(context.Background(), []model.Recipe{{ID: "r1", Tags: []string{}}}))

	hh, err := s.CreateHousehold(context.Background(), "家")
	require.NoError(t, err)

	snap := model.Snapshot{}
	snap.Recipes = local.recipes
	require.NoError(t, s.SyncLocalToCloud(context.Background(), hh.ID, snap.Recipes, nil))

	ids, err := remote.RecipeIDs(context.Background(), hh.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, ids)

	// user deletes the recipe; the next full-collection save reconciles it away
	require.Equal(t, Synced, s.SaveRecipes(context.Background(), []model.Recipe{}))
	ids, err = remote.RecipeIDs(context.Background(), hh.ID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

// ---- change notifier wiring ----

func TestSubscribeToChanges_RenameUpdatesPointerBeforeCallback(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "旧", Code: "AB12CD"}}
	notifier := &fakeNotifier{}
	s := newEngine(t, local, newFakeRemote(), notifier)

	var observed string
	sub, err := s.SubscribeToChanges(context.Background(), "h1", func() {
		observed = s.GetHousehold().Name
	})
	require.NoError(t, err)
	require.Equal(t, "h1", notifier.householdID)

	notifier.onEvent(repository.Event{Table: "households", Op: "UPDATE", HouseholdID: "h1", Name: "新"})
	require.Equal(t, "新", observed) // pointer updated before onChange fired
	require.Equal(t, "新", local.hh.Name)

	sub.Unsubscribe()
	require.True(t, notifier.sub.unsubscribed)
}

func TestSubscribeToChanges_DataEventJustFires(t *testing.T) {
	t.Parallel()
	local := &fakeLocal{hh: &model.Household{ID: "h1", Name: "家", Code: "AB12CD"}}
	notifier := &fakeNotifier{}
	s := newEngine(t, local, newFakeRemote(), notifier)

	fired := 0
	_, err := s.SubscribeToChanges(context.Background(), "h1", func() { fired++ })
	require.NoError(t, err)

	notifier.onEvent(repository.Event{Table: "recipes", Op: "INSERT", HouseholdID: "h1"})
	notifier.onEvent(repository.Event{Table: "plans", Op: "DELETE", HouseholdID: "h1"})
	require.Equal(t, 2, fired)
	require.Equal(t, "家", s.GetHousehold().Name)
}

func TestHouseholdOpsWithoutRemote(t *testing.T) {
	t.Parallel()
	s := newEngine(t, &fakeLocal{}, nil, nil)

	_, err := s.CreateHousehold(context.Background(), "家")
	require.ErrorIs(t, err, errs.ErrNoRemote)
	_, err = s.JoinHousehold(context.Background(), "AB12CD")
	require.ErrorIs(t, err, errs.ErrNoRemote)
	require.ErrorIs(t, s.SyncLocalToCloud(context.Background(), "h1", nil, nil), errs.ErrNoRemote)
	_, err = s.SubscribeToChanges(context.Background(), "h1", func() {})
	require.ErrorIs(t, err, errs.ErrNoRemote)
}
