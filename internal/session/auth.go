package session

import "sync"

// User is the signed-in operator.
type User struct {
	ID          string
	DisplayName string
}

// Auth reports who is signed in and notifies on change.
type Auth interface {
	CurrentUser() (User, bool)
	OnChange(fn func(u User, signedIn bool)) (unsubscribe func())
}

// StaticAuth is an Auth whose user comes from configuration. SignIn and
// SignOut exist so operators can switch identity at run time.
type StaticAuth struct {
	mu        sync.Mutex
	user      User
	signedIn  bool
	nextID    int
	listeners map[int]func(User, bool)
}

func NewStaticAuth(user User) *StaticAuth {
	a := &StaticAuth{listeners: make(map[int]func(User, bool))}
	if user.ID != "" {
		a.user = user
		a.signedIn = true
	}
	return a
}

func (a *StaticAuth) CurrentUser() (User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user, a.signedIn
}

func (a *StaticAuth) OnChange(fn func(User, bool)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *StaticAuth) SignIn(u User) {
	a.set(u, u.ID != "")
}

func (a *StaticAuth) SignOut() {
	a.set(User{}, false)
}

func (a *StaticAuth) set(u User, signedIn bool) {
	a.mu.Lock()
	a.user = u
	a.signedIn = signedIn
	fns := make([]func(User, bool), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(u, signedIn)
	}
}
