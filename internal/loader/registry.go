package loader

import (
	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/repository"
)

// Hooks carries the metric callback injected by main. Using a struct keeps
// the registry constructor signature stable as hooks grow.
type Hooks struct {
	// OnBatch fires once per dispatched window with the loader name and the
	// deduplicated key count. Nil is a no-op.
	OnBatch func(loader string, keys int)
}

// Registry holds one loader of each kind for a single request. A fresh
// registry is built per inbound request; loaders never outlive it and never
// share state with other requests.
//
// Construction wires batch functions to the request's context but performs
// no persistence or network calls; loaders are lazy until the first Get.
type Registry struct {
	rc *RequestContext

	quizzes      *Loader[string, *domain.Quiz]
	users        *Loader[string, *domain.User]
	instances    *Loader[string, *domain.Instance]
	grades       *Loader[string, *domain.Grade]
	seasons      *Loader[SeasonWindowKey, []*domain.Season]
	gradeWindows *Loader[GradeWindowKey, []*domain.Grade]
	myResponses  *Loader[string, *domain.Response]
	handles      *Loader[string, *messenger.Handle]
}

// NewRegistry builds the per-request loader set. rc is mandatory: there is no
// process-wide fallback scope, so a missing request context is a programming
// error surfaced at construction time.
func NewRegistry(rc *RequestContext, store repository.Store, msgr messenger.Messenger, hooks Hooks) *Registry {
	if rc == nil {
		panic("loader: NewRegistry requires a RequestContext")
	}
	return &Registry{
		rc:           rc,
		quizzes:      New("quizzes", quizzesByID(store), hooks.OnBatch),
		users:        New("users", usersByID(store), hooks.OnBatch),
		instances:    New("instances", instancesByID(store), hooks.OnBatch),
		grades:       New("grades", gradesByID(store), hooks.OnBatch),
		seasons:      New("seasons", seasonsByWindow(store), hooks.OnBatch),
		gradeWindows: New("grade_windows", gradesByWindow(store), hooks.OnBatch),
		myResponses:  New("my_responses", myResponses(rc, store), hooks.OnBatch),
		handles:      New("messenger_handles", messengerHandles(store, msgr), hooks.OnBatch),
	}
}

// Context returns the request context the registry was built with.
func (r *Registry) Context() *RequestContext { return r.rc }

func (r *Registry) Quizzes() *Loader[string, *domain.Quiz]                 { return r.quizzes }
func (r *Registry) Users() *Loader[string, *domain.User]                   { return r.users }
func (r *Registry) Instances() *Loader[string, *domain.Instance]           { return r.instances }
func (r *Registry) Grades() *Loader[string, *domain.Grade]                 { return r.grades }
func (r *Registry) Seasons() *Loader[SeasonWindowKey, []*domain.Season]    { return r.seasons }
func (r *Registry) GradeWindows() *Loader[GradeWindowKey, []*domain.Grade] { return r.gradeWindows }
func (r *Registry) MyResponses() *Loader[string, *domain.Response]         { return r.myResponses }
func (r *Registry) MessengerHandles() *Loader[string, *messenger.Handle]   { return r.handles }
