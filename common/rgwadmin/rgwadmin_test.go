package rgwadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestRgwAdmin(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RGW Admin Suite")
}

type fakeGateway struct {
	mu    sync.Mutex
	users map[string]map[string]interface{}
}

func (g *fakeGateway) fail(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"Code": code, "RequestId": "tx1", "HostId": "fake"})
}

func (g *fakeGateway) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/admin/user", func(w http.ResponseWriter, req *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		q := req.URL.Query()
		uid := q.Get("uid")
		switch req.Method {
		case http.MethodPut:
			if _, ok := g.users[uid]; ok {
				g.fail(w, http.StatusConflict, "UserAlreadyExists")
				return
			}
			email := q.Get("email")
			for _, u := range g.users {
				if email != "" && u["email"] == email {
					g.fail(w, http.StatusConflict, "EmailExists")
					return
				}
			}
			user := map[string]interface{}{
				"user_id":      uid,
				"display_name": q.Get("display-name"),
				"email":        email,
				"keys": []map[string]string{
					{"user": uid, "access_key": "AK-" + uid, "secret_key": "SK-" + uid},
				},
			}
			g.users[uid] = user
			_ = json.NewEncoder(w).Encode(user)
		case http.MethodGet:
			user, ok := g.users[uid]
			if !ok {
				g.fail(w, http.StatusNotFound, "NoSuchUser")
				return
			}
			_ = json.NewEncoder(w).Encode(user)
		case http.MethodDelete:
			if _, ok := g.users[uid]; !ok {
				g.fail(w, http.StatusNotFound, "NoSuchUser")
				return
			}
			delete(g.users, uid)
		}
	})
	return r
}

var _ = Describe("RGW admin client", func() {
	var (
		srv    *httptest.Server
		client *Client
		ctx    = context.Background()
	)

	BeforeEach(func() {
		gw := &fakeGateway{users: map[string]map[string]interface{}{}}
		srv = httptest.NewServer(gw.router())
		var err error
		client, err = New(srv.URL, "admin", "secret")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		srv.Close()
	})

	It("creates and gets a user", func() {
		user, err := client.CreateUser(ctx, UserSpec{UID: "user1", DisplayName: "User One"})
		Expect(err).ToNot(HaveOccurred())
		Expect(user.ID).To(Equal("user1"))

		got, err := client.GetUser(ctx, "", "user1")
		Expect(err).ToNot(HaveOccurred())
		Expect(got.DisplayName).To(Equal("User One"))

		account, err := AccountOf(got)
		Expect(err).ToNot(HaveOccurred())
		Expect(account.AccessKey).To(Equal("AK-user1"))
	})

	It("rejects a user without display name", func() {
		_, err := client.CreateUser(ctx, UserSpec{UID: "user1"})
		Expect(IsBadRequest(err)).To(BeTrue())
	})

	It("reports conflicts for duplicate uid and email", func() {
		_, err := client.CreateUser(ctx, UserSpec{UID: "user1", DisplayName: "u", Email: "u@seagate.com"})
		Expect(err).ToNot(HaveOccurred())

		_, err = client.CreateUser(ctx, UserSpec{UID: "user1", DisplayName: "u"})
		Expect(IsConflict(err)).To(BeTrue())

		_, err = client.CreateUser(ctx, UserSpec{UID: "user2", DisplayName: "u", Email: "u@seagate.com"})
		Expect(IsConflict(err)).To(BeTrue())

		_, err = client.CreateUser(ctx, UserSpec{UID: "user3", DisplayName: "u"})
		Expect(err).ToNot(HaveOccurred())
	})

	It("keeps same uid apart across tenants", func() {
		_, err := client.CreateUser(ctx, UserSpec{UID: "user1", DisplayName: "a", Tenant: "tnt1"})
		Expect(err).ToNot(HaveOccurred())
		_, err = client.CreateUser(ctx, UserSpec{UID: "user1", DisplayName: "b", Tenant: "tnt2"})
		Expect(err).ToNot(HaveOccurred())

		got, err := client.GetUser(ctx, "tnt2", "user1")
		Expect(err).ToNot(HaveOccurred())
		Expect(got.ID).To(Equal("tnt2$user1"))
	})

	It("removes users", func() {
		_, err := client.CreateUser(ctx, UserSpec{UID: "user1", DisplayName: "a"})
		Expect(err).ToNot(HaveOccurred())
		Expect(client.RemoveUser(ctx, "", "user1")).To(Succeed())

		_, err = client.GetUser(ctx, "", "user1")
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("creates account users with keys", func() {
		accounts, err := client.CreateAccountUsers(ctx, "io", 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(accounts).To(HaveLen(3))
		for _, a := range accounts {
			Expect(a.SecretKey).ToNot(BeEmpty())
		}
	})

	It("builds tenant qualified ids", func() {
		Expect(FullUID("", "u")).To(Equal("u"))
		Expect(FullUID("t", "u")).To(Equal("t$u"))
	})
})
