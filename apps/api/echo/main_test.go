package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/sonalink/sonalink/apps/api/echo"
	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
	"github.com/sonalink/sonalink/core/search"
	"github.com/sonalink/sonalink/core/user"
	"github.com/sonalink/sonalink/services/cache"
	emailsvc "github.com/sonalink/sonalink/services/email"
	"github.com/sonalink/sonalink/services/filestore"
	dummydb "github.com/sonalink/sonalink/storage/database/dummy"
	testutil "github.com/sonalink/sonalink/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf   *core.Config
	db     *dummydb.DB
	server *echoapi.Server
	logger *testutil.Logger
	files  *filestore.MemoryStore

	users   user.Repository
	courses course.Repository

	quizSvc     *quiz.Service
	forumSvc    *forum.Service
	materialSvc *material.Service
	notifSvc    *notification.Service
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)
	emailsvc.ResetSentMessages()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.Auth.EmailDomain)
	quiz.InitValidators(validate, translator)

	// set up DB & repos
	db := dummydb.Open()
	tx := dummydb.NewTransactor(db)
	users := dummydb.NewUserRepository(db)
	courses := dummydb.NewCourseRepository(db)
	files := filestore.NewMemoryStore("http://files.test")

	// set up services
	courseSvc := course.NewService(courses)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db))
	quizSvc := quiz.NewService(tx, dummydb.NewQuizRepository(db), courseSvc, logger)
	forumSvc := forum.NewService(tx, dummydb.NewForumRepository(db), courseSvc, notifSvc, logger)
	materialSvc := material.NewService(tx, dummydb.NewMaterialRepository(db), files, courseSvc, conf, logger)
	userSvc := user.NewService(tx, users, emailsvc.NewConsoleServiceMock(conf, logger), files, conf, logger)
	searchSvc := search.NewService(dummydb.NewSearchRepository(db), cache.NewMemoryCache(), conf, logger)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		UserSvc:         userSvc,
		CourseSvc:       courseSvc,
		MaterialSvc:     materialSvc,
		ForumSvc:        forumSvc,
		QuizSvc:         quizSvc,
		NotificationSvc: notifSvc,
		SearchSvc:       searchSvc,
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
	})
	t.Cleanup(func() { _ = server.Close() })

	return testApp{
		conf:        conf,
		db:          db,
		server:      server,
		logger:      logger,
		files:       files,
		users:       users,
		courses:     courses,
		quizSvc:     quizSvc,
		forumSvc:    forumSvc,
		materialSvc: materialSvc,
		notifSvc:    notifSvc,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
