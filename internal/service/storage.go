// Package service implements the reconciliation engine: for every read and
// write it decides whether the device-local store or the shared household
// store is authoritative, and reconciles full collections against the
// household store by record identity.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"sharebite/internal/errs"
	"sharebite/internal/model"
	"sharebite/internal/repository"
)

// Kind names a persisted collection.
type Kind string

const (
	KindRecipes Kind = "recipes"
	KindPlan    Kind = "plan"
	KindProfile Kind = "profile"
)

// SaveStatus reports where a save landed. Remote failures are logged and
// swallowed so a transient network error never interrupts the interaction;
// the status is how callers learn their change may not have synced yet.
type SaveStatus string

const (
	// SavedLocal means no household is joined; the write went to the local store.
	SavedLocal SaveStatus = "local"
	// Synced means the full diff-and-upsert pass reached the household store.
	Synced SaveStatus = "synced"
	// Partial means one of the two passes failed: the household store may hold
	// rows the device already discarded, or miss recent edits, until the next
	// successful save.
	Partial SaveStatus = "partial"
	// Failed means nothing reached the target store.
	Failed SaveStatus = "failed"
)

// Storage is the engine behind the application boundary. It caches the
// household membership pointer in memory so GetHousehold never touches the
// network, and serializes overlapping saves of the same collection kind so
// two diff-and-upsert passes cannot race each other on one device. Nothing
// serializes writes across devices: concurrent savers are last-writer-wins
// at row granularity.
type Storage struct {
	local    repository.LocalStore
	remote   repository.RemoteStore
	notifier repository.Notifier
	log      *zap.Logger

	mu        sync.Mutex
	household *model.Household // cached pointer, nil when not joined

	saveMu map[Kind]*sync.Mutex
}

// New builds the engine and primes the cached membership pointer from the
// local store. remote and notifier may be nil for a purely local setup;
// household operations then return errs.ErrNoRemote.
func New(ctx context.Context, local repository.LocalStore, remote repository.RemoteStore, notifier repository.Notifier, log *zap.Logger) (*Storage, error) {
	hh, err := local.Household(ctx)
	if err != nil {
		return nil, fmt.Errorf("read household pointer: %w", err)
	}
	return &Storage{
		local:     local,
		remote:    remote,
		notifier:  notifier,
		log:       log,
		household: hh,
		saveMu: map[Kind]*sync.Mutex{
			KindRecipes: {},
			KindPlan:    {},
			KindProfile: {},
		},
	}, nil
}

// GetHousehold returns a copy of the cached membership pointer without a
// network round trip, or nil when no household is joined.
func (s *Storage) GetHousehold() *model.Household {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.household == nil {
		return nil
	}
	hh := *s.household
	return &hh
}

// setHousehold persists the pointer (or its absence) and refreshes the cache.
func (s *Storage) setHousehold(ctx context.Context, hh *model.Household) error {
	if hh == nil {
		if err := s.local.DeleteHousehold(ctx); err != nil {
			return fmt.Errorf("discard household pointer: %w", err)
		}
	} else {
		if err := s.local.SaveHousehold(ctx, *hh); err != nil {
			return fmt.Errorf("save household pointer: %w", err)
		}
	}
	s.mu.Lock()
	s.household = hh
	s.mu.Unlock()
	return nil
}

// LoadData returns the renderable state. Determining the authoritative store
// is a pure function of the membership pointer: joined means the household
// store, otherwise the local one. Remote failures degrade to empty
// collections and a log line, never an error; only local-store failures are
// returned.
func (s *Storage) LoadData(ctx context.Context) (model.Snapshot, error) {
	profile, err := s.loadProfile(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	snap := model.Snapshot{
		Recipes: []model.Recipe{},
		Plan:    []model.MealPlanItem{},
		Profile: profile,
	}

	hh := s.GetHousehold()
	if hh == nil || s.remote == nil {
		recipes, err := s.local.Recipes(ctx)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("read local recipes: %w", err)
		}
		plan, err := s.local.Plan(ctx)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("read local plan: %w", err)
		}
		snap.Recipes, snap.Plan = recipes, plan
		return snap, nil
	}

	if recipes, err := s.remote.Recipes(ctx, hh.ID); err != nil {
		s.log.Warn("load household recipes", zap.String("household", hh.ID), zap.Error(err))
	} else {
		snap.Recipes = recipes
	}
	if plan, err := s.remote.Plan(ctx, hh.ID); err != nil {
		s.log.Warn("load household plan", zap.String("household", hh.ID), zap.Error(err))
	} else {
		snap.Plan = plan
	}

	// The remote display name is authoritative over the cached pointer.
	if name, err := s.remote.HouseholdName(ctx, hh.ID); err != nil {
		s.log.Warn("refresh household name", zap.String("household", hh.ID), zap.Error(err))
	} else if name != hh.Name {
		hh.Name = name
		if err := s.setHousehold(ctx, hh); err != nil {
			s.log.Warn("cache refreshed household name", zap.Error(err))
		}
	}
	return snap, nil
}

func (s *Storage) loadProfile(ctx context.Context) (model.UserProfile, error) {
	p, err := s.local.Profile(ctx)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("read profile: %w", err)
	}
	if p == nil {
		return model.DefaultProfile(), nil
	}
	// Backfill fields added after this profile was first saved. In-memory
	// only; the next SaveProfile persists the backfilled shape.
	out := *p
	if out.Tagline == "" {
		out.Tagline = model.DefaultTagline
	}
	if out.Titles == nil {
		t := model.DefaultTitles()
		out.Titles = &t
	}
	return out, nil
}

// SaveProfile always writes to the local store, unconditionally.
// Personalization is per-device and never shared with household members.
func (s *Storage) SaveProfile(ctx context.Context, p model.UserProfile) error {
	s.saveMu[KindProfile].Lock()
	defer s.saveMu[KindProfile].Unlock()
	return s.local.SaveProfile(ctx, p)
}

// SaveRecipes persists the complete recipe collection. The collection is the
// whole truth: when a household is joined, remote rows whose identity is
// absent from it are deleted and every present row is upserted.
func (s *Storage) SaveRecipes(ctx context.Context, recipes []model.Recipe) SaveStatus {
	s.saveMu[KindRecipes].Lock()
	defer s.saveMu[KindRecipes].Unlock()

	hh := s.GetHousehold()
	if hh == nil || s.remote == nil {
		if err := s.local.SaveRecipes(ctx, recipes); err != nil {
			s.log.Error("save recipes locally", zap.Error(err))
			return Failed
		}
		return SavedLocal
	}

	ids := make([]string, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
	}
	return s.reconcile(ctx, KindRecipes, hh.ID, ids,
		func() ([]string, error) { return s.remote.RecipeIDs(ctx, hh.ID) },
		func(stale []string) error { return s.remote.DeleteRecipes(ctx, hh.ID, stale) },
		func() error { return s.remote.UpsertRecipes(ctx, hh.ID, recipes) },
	)
}

// SavePlan persists the complete meal plan, mirroring SaveRecipes.
func (s *Storage) SavePlan(ctx context.Context, plan []model.MealPlanItem) SaveStatus {
	s.saveMu[KindPlan].Lock()
	defer s.saveMu[KindPlan].Unlock()

	hh := s.GetHousehold()
	if hh == nil || s.remote == nil {
		if err := s.local.SavePlan(ctx, plan); err != nil {
			s.log.Error("save plan locally", zap.Error(err))
			return Failed
		}
		return SavedLocal
	}

	ids := make([]string, len(plan))
	for i, p := range plan {
		ids[i] = p.ID
	}
	return s.reconcile(ctx, KindPlan, hh.ID, ids,
		func() ([]string, error) { return s.remote.PlanIDs(ctx, hh.ID) },
		func(stale []string) error { return s.remote.DeletePlanItems(ctx, hh.ID, stale) },
		func() error { return s.remote.UpsertPlan(ctx, hh.ID, plan) },
	)
}

// reconcile runs the diff-by-identity pass against the household store:
// delete remote rows not in localIDs, then upsert every local row. Both
// steps are best effort; failures surface only through the status and log.
// The upsert is idempotent, so it gets a bounded retry.
func (s *Storage) reconcile(ctx context.Context, kind Kind, householdID string, localIDs []string,
	remoteIDs func() ([]string, error), del func([]string) error, upsert func() error) SaveStatus {

	deleteOK := true
	remote, err := remoteIDs()
	if err != nil {
		s.log.Warn("list remote ids",
			zap.String("kind", string(kind)), zap.String("household", householdID), zap.Error(err))
		deleteOK = false
	} else {
		local := make(map[string]struct{}, len(localIDs))
		for _, id := range localIDs {
			local[id] = struct{}{}
		}
		var stale []string
		for _, id := range remote {
			if _, ok := local[id]; !ok {
				stale = append(stale, id)
			}
		}
		if len(stale) > 0 {
			if err := del(stale); err != nil {
				s.log.Warn("delete stale rows",
					zap.String("kind", string(kind)), zap.Int("count", len(stale)), zap.Error(err))
				deleteOK = false
			}
		}
	}

	upsertOK := true
	if len(localIDs) > 0 {
		backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := upsert(); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			s.log.Warn("upsert rows",
				zap.String("kind", string(kind)), zap.Int("count", len(localIDs)), zap.Error(err))
			upsertOK = false
		}
	}

	switch {
	case deleteOK && upsertOK:
		return Synced
	case deleteOK || upsertOK:
		return Partial
	default:
		return Failed
	}
}

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 6
)

// newJoinCode returns a short shareable token. Uniqueness is enforced by the
// store; CreateHousehold regenerates on collision.
func newJoinCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// CreateHousehold creates a new sharing scope and adopts it as the local
// membership. Unlike the read/write paths, a failure here is returned: there
// is no safe default to fall back to. Callers are expected to invoke
// SyncLocalToCloud right after, so pre-existing local data is not stranded.
func (s *Storage) CreateHousehold(ctx context.Context, name string) (*model.Household, error) {
	if s.remote == nil {
		return nil, errs.ErrNoRemote
	}
	for attempt := 0; attempt < 3; attempt++ {
		code, err := newJoinCode()
		if err != nil {
			return nil, err
		}
		hh := model.Household{ID: model.NewID(), Name: name, Code: code}
		err = s.remote.CreateHousehold(ctx, hh)
		if errors.Is(err, errs.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create household: %w", err)
		}
		if err := s.setHousehold(ctx, &hh); err != nil {
			return nil, err
		}
		return &hh, nil
	}
	return nil, errs.ErrCodeTaken
}

// JoinHousehold resolves a join code and adopts the household on success.
// An unknown code returns (nil, nil) and leaves the current membership
// untouched; that is an outcome for the caller to present, not an error.
func (s *Storage) JoinHousehold(ctx context.Context, code string) (*model.Household, error) {
	if s.remote == nil {
		return nil, errs.ErrNoRemote
	}
	hh, err := s.remote.HouseholdByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("join household: %w", err)
	}
	if hh == nil {
		return nil, nil
	}
	if err := s.setHousehold(ctx, hh); err != nil {
		return nil, err
	}
	return hh, nil
}

// LeaveHousehold discards the local membership pointer. The household row and
// its collections remain for the other members; no remote mutation happens.
func (s *Storage) LeaveHousehold(ctx context.Context) error {
	return s.setHousehold(ctx, nil)
}

// UpdateHouseholdName renames the household remotely, then updates the cached
// pointer so subsequent reads observe the new name.
func (s *Storage) UpdateHouseholdName(ctx context.Context, id, name string) error {
	if s.remote == nil {
		return errs.ErrNoRemote
	}
	if err := s.remote.RenameHousehold(ctx, id, name); err != nil {
		return fmt.Errorf("rename household: %w", err)
	}
	if hh := s.GetHousehold(); hh != nil && hh.ID == id {
		hh.Name = name
		return s.setHousehold(ctx, hh)
	}
	return nil
}

// SyncLocalToCloud upserts the device's local collections into a newly
// adopted household. Run exactly once at creation/join time. It never
// deletes: rows belonging to other members survive the merge.
func (s *Storage) SyncLocalToCloud(ctx context.Context, householdID string, recipes []model.Recipe, plan []model.MealPlanItem) error {
	if s.remote == nil {
		return errs.ErrNoRemote
	}
	if len(recipes) > 0 {
		if err := s.remote.UpsertRecipes(ctx, householdID, recipes); err != nil {
			return fmt.Errorf("sync recipes to household: %w", err)
		}
	}
	if len(plan) > 0 {
		if err := s.remote.UpsertPlan(ctx, householdID, plan); err != nil {
			return fmt.Errorf("sync plan to household: %w", err)
		}
	}
	return nil
}

// SubscribeToChanges opens a push channel for the household. On a rename
// event the cached membership pointer is updated before onChange fires, so a
// caller reading GetHousehold inside the callback sees a consistent name.
// The subscription must be torn down when the device leaves the household.
func (s *Storage) SubscribeToChanges(ctx context.Context, householdID string, onChange func()) (repository.Subscription, error) {
	if s.notifier == nil {
		return nil, errs.ErrNoRemote
	}
	return s.notifier.Subscribe(ctx, householdID, func(ev repository.Event) {
		if ev.Table == "households" && ev.Name != "" {
			if hh := s.GetHousehold(); hh != nil && hh.ID == householdID && hh.Name != ev.Name {
				hh.Name = ev.Name
				if err := s.setHousehold(ctx, hh); err != nil {
					s.log.Warn("update household pointer from change event", zap.Error(err))
				}
			}
		}
		onChange()
	})
}
