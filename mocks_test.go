package tenantauth_test

import (
	"context"
	"mime/multipart"
	"sync"

	tenantauth "github.com/soluna-labs/go-tenant-auth"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockIdentityService implements tenantauth.IdentityService
type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) SignUp(ctx context.Context, email, password string) (tenantauth.Principal, error) {
	args := m.Called(ctx, email, password)
	p, _ := args.Get(0).(tenantauth.Principal)
	return p, args.Error(1)
}

func (m *MockIdentityService) SignIn(ctx context.Context, email, password string) (tenantauth.Principal, error) {
	args := m.Called(ctx, email, password)
	p, _ := args.Get(0).(tenantauth.Principal)
	return p, args.Error(1)
}

func (m *MockIdentityService) SignInWithIDToken(ctx context.Context, rawToken string) (tenantauth.Principal, error) {
	args := m.Called(ctx, rawToken)
	p, _ := args.Get(0).(tenantauth.Principal)
	return p, args.Error(1)
}

func (m *MockIdentityService) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityService) SendPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockIdentityService) SendEmailVerification(ctx context.Context, principal tenantauth.Principal) error {
	args := m.Called(ctx, principal)
	return args.Error(0)
}

func (m *MockIdentityService) UpdateDisplayName(ctx context.Context, principal tenantauth.Principal, name string) error {
	args := m.Called(ctx, principal, name)
	return args.Error(0)
}

func (m *MockIdentityService) UpdatePassword(ctx context.Context, principal tenantauth.Principal, newPassword string) error {
	args := m.Called(ctx, principal, newPassword)
	return args.Error(0)
}

func (m *MockIdentityService) ConfigurePersistence(mode tenantauth.PersistenceMode) error {
	args := m.Called(mode)
	return args.Error(0)
}

func (m *MockIdentityService) Subscribe(onChange func(tenantauth.Principal)) tenantauth.Subscription {
	args := m.Called(onChange)
	s, _ := args.Get(0).(tenantauth.Subscription)
	if s == nil {
		s = fakeSubscription{}
	}
	return s
}

// MockDocumentStore implements tenantauth.DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) GetDocument(ctx context.Context, collection, key string) (tenantauth.Document, bool, error) {
	args := m.Called(ctx, collection, key)
	doc, _ := args.Get(0).(tenantauth.Document)
	return doc, args.Bool(1), args.Error(2)
}

func (m *MockDocumentStore) SetDocument(ctx context.Context, collection, key string, data tenantauth.Document, merge bool) error {
	args := m.Called(ctx, collection, key, data, merge)
	return args.Error(0)
}

// MockAccountStore implements tenantauth.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*tenantauth.Account, error) {
	args := m.Called(ctx, email)
	a, _ := args.Get(0).(*tenantauth.Account)
	return a, args.Error(1)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id string) (*tenantauth.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*tenantauth.Account)
	return a, args.Error(1)
}

func (m *MockAccountStore) Create(ctx context.Context, record *tenantauth.Account) (*tenantauth.Account, error) {
	args := m.Called(ctx, record)
	if fn, ok := args.Get(0).(func(context.Context, *tenantauth.Account) *tenantauth.Account); ok {
		return fn(ctx, record), args.Error(1)
	}
	a, _ := args.Get(0).(*tenantauth.Account)
	return a, args.Error(1)
}

func (m *MockAccountStore) Update(ctx context.Context, record *tenantauth.Account) (*tenantauth.Account, error) {
	args := m.Called(ctx, record)
	if fn, ok := args.Get(0).(func(context.Context, *tenantauth.Account) *tenantauth.Account); ok {
		return fn(ctx, record), args.Error(1)
	}
	a, _ := args.Get(0).(*tenantauth.Account)
	return a, args.Error(1)
}

func (m *MockAccountStore) TrackAttemptedLogin(ctx context.Context, account *tenantauth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountStore) TrackSuccessfulLogin(ctx context.Context, account *tenantauth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type fakeSubscription struct{}

func (fakeSubscription) Unsubscribe() {}

// fakeIdentityService is a scriptable identity service for event stream
// tests: Emit pushes a session change to every subscriber the way the real
// service would.
type fakeIdentityService struct {
	mu         sync.Mutex
	current    tenantauth.Principal
	handlers   map[int]func(tenantauth.Principal)
	nextID     int
	persistErr error
	signOutErr error
	calls      []string
}

func newFakeIdentityService() *fakeIdentityService {
	return &fakeIdentityService{handlers: map[int]func(tenantauth.Principal){}}
}

func (f *fakeIdentityService) Emit(p tenantauth.Principal) {
	f.mu.Lock()
	f.current = p
	handlers := make([]func(tenantauth.Principal), 0, len(f.handlers))
	for _, fn := range f.handlers {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(p)
	}
}

func (f *fakeIdentityService) SignUp(context.Context, string, string) (tenantauth.Principal, error) {
	return nil, nil
}

func (f *fakeIdentityService) SignIn(context.Context, string, string) (tenantauth.Principal, error) {
	return nil, nil
}

func (f *fakeIdentityService) SignInWithIDToken(context.Context, string) (tenantauth.Principal, error) {
	return nil, nil
}

func (f *fakeIdentityService) SignOut(context.Context) error {
	f.mu.Lock()
	f.calls = append(f.calls, "signOut")
	f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.Emit(nil)
	return nil
}

func (f *fakeIdentityService) SendPasswordReset(context.Context, string) error { return nil }

func (f *fakeIdentityService) SendEmailVerification(context.Context, tenantauth.Principal) error {
	return nil
}

func (f *fakeIdentityService) UpdateDisplayName(context.Context, tenantauth.Principal, string) error {
	return nil
}

func (f *fakeIdentityService) UpdatePassword(context.Context, tenantauth.Principal, string) error {
	return nil
}

func (f *fakeIdentityService) ConfigurePersistence(tenantauth.PersistenceMode) error {
	f.mu.Lock()
	f.calls = append(f.calls, "configurePersistence")
	f.mu.Unlock()
	return f.persistErr
}

func (f *fakeIdentityService) Subscribe(onChange func(tenantauth.Principal)) tenantauth.Subscription {
	f.mu.Lock()
	f.calls = append(f.calls, "subscribe")
	id := f.nextID
	f.nextID++
	f.handlers[id] = onChange
	current := f.current
	f.mu.Unlock()

	onChange(current)
	return fakeSubscription{}
}

func (f *fakeIdentityService) callSequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeDocStore is an in-memory DocumentStore whose reads can be held open
// through gate to exercise the staleness guard.
type fakeDocStore struct {
	mu     sync.Mutex
	docs   map[string]tenantauth.Document
	gate   chan struct{}
	getErr error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]tenantauth.Document{}}
}

func (f *fakeDocStore) put(collection, key string, doc tenantauth.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[collection+"/"+key] = doc
}

func (f *fakeDocStore) GetDocument(_ context.Context, collection, key string) (tenantauth.Document, bool, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, false, f.getErr
	}

	doc, ok := f.docs[collection+"/"+key]
	return doc, ok, nil
}

func (f *fakeDocStore) SetDocument(_ context.Context, collection, key string, data tenantauth.Document, merge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if merge {
		if existing, ok := f.docs[collection+"/"+key]; ok {
			for k, v := range data {
				existing[k] = v
			}
			return nil
		}
	}

	f.docs[collection+"/"+key] = data
	return nil
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	f, _ := args.Get(0).(*multipart.FileHeader)
	return f, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}
