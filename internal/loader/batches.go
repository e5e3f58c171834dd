package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/repository"
)

// ---- by-id batch functions ----
//
// One "get many by id" call per window; ids with no row are absent from the
// result map, which the loader surfaces as ok=false rather than an error.

func quizzesByID(repo repository.QuizRepository) BatchFunc[string, *domain.Quiz] {
	return func(ctx context.Context, ids []string) (map[string]*domain.Quiz, error) {
		quizzes, err := repo.GetQuizzesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[string]*domain.Quiz, len(quizzes))
		for _, q := range quizzes {
			result[q.ID] = q
		}
		return result, nil
	}
}

func usersByID(repo repository.UserRepository) BatchFunc[string, *domain.User] {
	return func(ctx context.Context, ids []string) (map[string]*domain.User, error) {
		users, err := repo.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[string]*domain.User, len(users))
		for _, u := range users {
			result[u.ID] = u
		}
		return result, nil
	}
}

func instancesByID(repo repository.InstanceRepository) BatchFunc[string, *domain.Instance] {
	return func(ctx context.Context, ids []string) (map[string]*domain.Instance, error) {
		instances, err := repo.GetInstancesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[string]*domain.Instance, len(instances))
		for _, inst := range instances {
			result[inst.ID] = inst
		}
		return result, nil
	}
}

func gradesByID(repo repository.GradeRepository) BatchFunc[string, *domain.Grade] {
	return func(ctx context.Context, ids []string) (map[string]*domain.Grade, error) {
		grades, err := repo.GetGradesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		result := make(map[string]*domain.Grade, len(grades))
		for _, g := range grades {
			result[g.ID] = g
		}
		return result, nil
	}
}

// ---- grouped-by-parameters batch functions ----
//
// Keys sharing a window tuple are served by one grouped call; distinct
// tuples each get their own call, issued concurrently. The result map is
// keyed by the full composite key, so groups cannot collide by construction;
// the duplicate check below guards that assumption anyway.

func seasonsByWindow(repo repository.SeasonRepository) BatchFunc[SeasonWindowKey, []*domain.Season] {
	return groupedByWindow(
		func(k SeasonWindowKey) (string, TimeWindow) { return k.InstanceID, k.Window },
		func(owner string, w TimeWindow) SeasonWindowKey { return SeasonWindowKey{InstanceID: owner, Window: w} },
		func(ctx context.Context, owners []string, from, to *time.Time) (map[string][]*domain.Season, error) {
			return repo.ListSeasonsByInstanceIDs(ctx, owners, from, to)
		},
	)
}

func gradesByWindow(repo repository.GradeRepository) BatchFunc[GradeWindowKey, []*domain.Grade] {
	return groupedByWindow(
		func(k GradeWindowKey) (string, TimeWindow) { return k.UserID, k.Window },
		func(owner string, w TimeWindow) GradeWindowKey { return GradeWindowKey{UserID: owner, Window: w} },
		func(ctx context.Context, owners []string, from, to *time.Time) (map[string][]*domain.Grade, error) {
			return repo.ListGradesByUserIDs(ctx, owners, from, to)
		},
	)
}

// groupedByWindow partitions composite keys by their window tuple, issues one
// grouped call per tuple, and expands each owner's list back onto its key.
// List order is whatever the grouped call returned; it is never reordered here.
func groupedByWindow[K comparable, C any](
	split func(K) (string, TimeWindow),
	join func(string, TimeWindow) K,
	list func(ctx context.Context, owners []string, from, to *time.Time) (map[string][]C, error),
) BatchFunc[K, []C] {
	return func(ctx context.Context, keys []K) (map[K][]C, error) {
		groups := make(map[TimeWindow][]string)
		for _, k := range keys {
			owner, w := split(k)
			groups[w] = append(groups[w], owner)
		}

		var mu sync.Mutex
		result := make(map[K][]C, len(keys))

		g, gctx := errgroup.WithContext(ctx)
		for w, owners := range groups {
			g.Go(func() error {
				byOwner, err := list(gctx, owners, w.From(), w.To())
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				for _, owner := range owners {
					k := join(owner, w)
					if _, dup := result[k]; dup {
						return fmt.Errorf("duplicate owner %q within one window group", owner)
					}
					result[k] = byOwner[owner]
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return result, nil
	}
}

// ---- context-filtered batch function ----

// myResponses resolves the current principal's own response per quiz. The
// principal is read from the RequestContext at dispatch time, because keys
// may be queued before the authentication layer attaches it. An anonymous
// request resolves every key to absent, never an error.
func myResponses(rc *RequestContext, repo repository.ResponseRepository) BatchFunc[string, *domain.Response] {
	return func(ctx context.Context, quizIDs []string) (map[string]*domain.Response, error) {
		principal := rc.Principal()
		if principal == nil {
			return map[string]*domain.Response{}, nil
		}
		return repo.GetResponsesForUser(ctx, principal.ID, quizIDs)
	}
}

// ---- integration probe batch function ----

// messengerHandles resolves whether each instance has an outbound messaging
// integration configured. A not-configured instance degrades to absent for
// that key only; it never fails the rest of the window.
func messengerHandles(repo repository.InstanceRepository, msgr messenger.Messenger) BatchFunc[string, *messenger.Handle] {
	return func(ctx context.Context, instanceIDs []string) (map[string]*messenger.Handle, error) {
		instances, err := repo.GetInstancesByIDs(ctx, instanceIDs)
		if err != nil {
			return nil, err
		}
		result := make(map[string]*messenger.Handle, len(instances))
		for _, inst := range instances {
			h, err := msgr.Resolve(ctx, inst)
			if errors.Is(err, domain.ErrMessengerNotConfigured) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result[inst.ID] = h
		}
		return result, nil
	}
}
