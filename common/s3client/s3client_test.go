package s3client_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"cortx-e2e/common/s3client"
)

func TestS3Client(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "S3 Client Suite")
}

const allUsers = "http://acs.amazonaws.com/groups/global/AllUsers"

// fakeS3 serves just enough of the S3 API for the client helpers
type fakeS3 struct {
	mu       sync.Mutex
	buckets  []string
	objects  map[string][]byte
	grants   map[string]string
	unsigned []string

	// iamStatus answers IAM requests with an error when not 200
	iamStatus int
	iamCalls  []string
}

func (f *fakeS3) router() *mux.Router {
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				f.mu.Lock()
				f.unsigned = append(f.unsigned, r.Method+" "+r.URL.Path)
				f.mu.Unlock()
				if r.Method != http.MethodGet {
					w.WriteHeader(http.StatusForbidden)
					fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	})
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><ListAllMyBucketsResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Owner><ID>tester</ID></Owner><Buckets>`)
		for _, b := range f.buckets {
			fmt.Fprintf(w, `<Bucket><Name>%s</Name><CreationDate>2021-01-01T00:00:00.000Z</CreationDate></Bucket>`, b)
		}
		fmt.Fprint(w, `</Buckets></ListAllMyBucketsResult>`)
	}).Methods("GET")
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = r.ParseForm()
		f.iamCalls = append(f.iamCalls, r.Form.Get("Action"))
		if f.iamStatus != http.StatusOK {
			w.Header().Set("Content-Type", "text/xml")
			w.WriteHeader(f.iamStatus)
			fmt.Fprint(w, `<ErrorResponse><Error><Type>Sender</Type><Code>MethodNotAllowed</Code><Message>not allowed</Message></Error><RequestId>tx1</RequestId></ErrorResponse>`)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, `<ListUsersResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/"><ListUsersResult><Users></Users><IsTruncated>false</IsTruncated></ListUsersResult><ResponseMetadata><RequestId>tx2</RequestId></ResponseMetadata></ListUsersResponse>`)
	}).Methods("POST")
	router.HandleFunc("/{bucket}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.buckets = append(f.buckets, mux.Vars(r)["bucket"])
	}).Methods("PUT")
	router.HandleFunc("/{bucket}/{key}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := mux.Vars(r)["bucket"] + "/" + mux.Vars(r)["key"]
		f.grants[name] = r.Header.Get("X-Amz-Grant-Read")
	}).Methods("PUT").Queries("acl", "")
	router.HandleFunc("/{bucket}/{key}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		data, _ := io.ReadAll(r.Body)
		f.objects[mux.Vars(r)["bucket"]+"/"+mux.Vars(r)["key"]] = data
		w.Header().Set("ETag", fmt.Sprintf(`"etag-%d"`, len(data)))
	}).Methods("PUT")
	router.HandleFunc("/{bucket}/{key}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		data, ok := f.objects[mux.Vars(r)["bucket"]+"/"+mux.Vars(r)["key"]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	}).Methods("GET")
	return router
}

var _ = Describe("S3 client", func() {
	var (
		fake   *fakeS3
		server *httptest.Server
		ctx    context.Context
		signed *s3client.Client
		anon   *s3client.Client
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		fake = &fakeS3{objects: map[string][]byte{}, grants: map[string]string{}, iamStatus: http.StatusOK}
		server = httptest.NewServer(fake.router())
		signed, err = s3client.New(ctx, s3client.Config{Endpoint: server.URL, AccessKey: "AK", SecretKey: "SK", MaxAttempts: 1})
		Expect(err).ToNot(HaveOccurred())
		anon, err = s3client.New(ctx, s3client.Config{Endpoint: server.URL, Anonymous: true, MaxAttempts: 1})
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should require credentials for signed clients", func() {
		_, err := s3client.New(ctx, s3client.Config{Endpoint: server.URL})
		Expect(err).To(HaveOccurred())
		_, err = s3client.New(ctx, s3client.Config{AccessKey: "AK", SecretKey: "SK"})
		Expect(err).To(HaveOccurred())
	})

	It("should create and list buckets", func() {
		Expect(signed.CreateBucket(ctx, "bucket-1")).To(Succeed())
		Expect(signed.CreateBucket(ctx, "bucket-2")).To(Succeed())
		names, err := signed.ListBuckets(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(names).To(Equal([]string{"bucket-1", "bucket-2"}))
		exists, err := signed.BucketExists(ctx, "bucket-2")
		Expect(err).ToNot(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("should put and get objects", func() {
		etag, err := signed.PutObjectBytes(ctx, "bucket-1", "obj", []byte("hello"))
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).To(Equal(`"etag-5"`))
		data, err := signed.GetObjectBytes(ctx, "bucket-1", "obj")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("hello"))
	})

	It("should send grants as group uris", func() {
		Expect(signed.PutObjectGrant(ctx, "bucket-1", "obj", types.PermissionRead, allUsers)).To(Succeed())
		Expect(fake.grants["bucket-1/obj"]).To(Equal("uri=" + allUsers))
		Expect(signed.PutObjectGrant(ctx, "bucket-1", "obj", types.Permission("BOGUS"), allUsers)).ToNot(Succeed())
	})

	It("should send anonymous requests unsigned and surface access denied", func() {
		_, err := anon.PutObjectBytes(ctx, "bucket-1", "obj", []byte("x"))
		Expect(err).To(HaveOccurred())
		Expect(s3client.IsAccessDenied(err)).To(BeTrue())
		Expect(s3client.ErrorCode(err)).To(Equal("AccessDenied"))
		Expect(s3client.StatusCode(err)).To(Equal(http.StatusForbidden))
		Expect(fake.unsigned).To(ContainElement("PUT /bucket-1/obj"))
	})

	It("should report missing keys", func() {
		_, err := signed.GetObjectBytes(ctx, "bucket-1", "missing")
		Expect(err).To(HaveOccurred())
		Expect(s3client.ErrorCode(err)).To(Equal("NoSuchKey"))
		Expect(s3client.IsAccessDenied(err)).To(BeFalse())
	})

	It("should clean IAM users of an account", func() {
		Expect(signed.DeleteAllIAMUsers(ctx)).To(Succeed())
		Expect(fake.iamCalls).To(Equal([]string{"ListUsers"}))
	})

	It("should treat a refused IAM user API as nothing to clean", func() {
		fake.iamStatus = http.StatusMethodNotAllowed
		_, err := signed.ListIAMUsers(ctx)
		Expect(err).To(HaveOccurred())
		Expect(s3client.IsIAMUnsupported(err)).To(BeTrue())
		Expect(signed.DeleteAllIAMUsers(ctx)).To(Succeed())
	})

	It("should not mistake other errors for a refused IAM user API", func() {
		_, err := signed.GetObjectBytes(ctx, "bucket-1", "missing")
		Expect(s3client.IsIAMUnsupported(err)).To(BeFalse())
	})

	It("should find group grants", func() {
		uri := allUsers
		grants := []types.Grant{
			{Grantee: &types.Grantee{Type: types.TypeCanonicalUser}, Permission: types.PermissionFullControl},
			{Grantee: &types.Grantee{Type: types.TypeGroup, URI: &uri}, Permission: types.PermissionReadAcp},
		}
		Expect(s3client.HasGroupGrant(grants, types.PermissionReadAcp, allUsers)).To(BeTrue())
		Expect(s3client.HasGroupGrant(grants, types.PermissionRead, allUsers)).To(BeFalse())
	})
})
