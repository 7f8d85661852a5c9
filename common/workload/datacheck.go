package workload

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
)

// ObjectStore is the subset of the S3 client used for IO
type ObjectStore interface {
	PutObjectBytes(ctx context.Context, bucket, key string, data []byte) (string, error)
	GetObjectBytes(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// StoreFactory returns an object store acting as account
type StoreFactory func(ctx context.Context, account common.S3Account) (ObjectStore, error)

// BucketSet is an account and the buckets it owns
type BucketSet struct {
	Account common.S3Account
	Buckets []string
}

type objectRef struct {
	user   string
	bucket string
	key    string
}

// parallel uploads or downloads per IO phase
const ioConcurrency = 8

// DataCheckManager writes objects of random size, remembers their checksums
// and verifies them on read back
type DataCheckManager struct {
	newStore StoreFactory
	sets     []BucketSet
	maxSize  int64

	mu       sync.Mutex
	stores   map[string]ObjectStore
	written  map[objectRef]string
	stop     chan struct{}
	stopOnce sync.Once
	writers  *errgroup.Group
}

// NewDataCheckManager sizes objects between 1 byte and maxFileSize, e.g. "4MiB"
func NewDataCheckManager(newStore StoreFactory, sets []BucketSet, maxFileSize string) (*DataCheckManager, error) {
	maxSize, err := units.RAMInBytes(maxFileSize)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid max file size %q", maxFileSize)
	}
	if maxSize <= 0 {
		return nil, errors.Errorf("max file size must be positive, got %q", maxFileSize)
	}
	return &DataCheckManager{
		newStore: newStore,
		sets:     sets,
		maxSize:  maxSize,
		stores:   map[string]ObjectStore{},
		written:  map[objectRef]string{},
		stop:     make(chan struct{}),
	}, nil
}

func (m *DataCheckManager) BucketSets() []BucketSet {
	return m.sets
}

// Objects returns the number of objects written and not yet removed
func (m *DataCheckManager) Objects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

func (m *DataCheckManager) store(ctx context.Context, account common.S3Account) (ObjectStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[account.UserName]; ok {
		return s, nil
	}
	s, err := m.newStore(ctx, account)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create client for %s", account.UserName)
	}
	m.stores[account.UserName] = s
	return s, nil
}

func (m *DataCheckManager) randomData() ([]byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(m.maxSize))
	if err != nil {
		return nil, err
	}
	data := make([]byte, n.Int64()+1)
	_, err = rand.Read(data)
	return data, err
}

func checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (m *DataCheckManager) writeOne(ctx context.Context, set BucketSet, bucket, prefix string) error {
	s, err := m.store(ctx, set.Account)
	if err != nil {
		return err
	}
	data, err := m.randomData()
	if err != nil {
		return errors.Wrap(err, "failed to generate data")
	}
	key := fmt.Sprintf("%s/obj-%s", prefix, uuid.NewString())
	if _, err = s.PutObjectBytes(ctx, bucket, key, data); err != nil {
		return err
	}
	m.mu.Lock()
	m.written[objectRef{user: set.Account.UserName, bucket: bucket, key: key}] = checksum(data)
	m.mu.Unlock()
	return nil
}

func (m *DataCheckManager) stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

// writeAll uploads filesCount objects to every bucket, until stopped when
// interruptible is set
func (m *DataCheckManager) writeAll(ctx context.Context, filesCount int, prefix string, interruptible bool) error {
	g, gctx := errgroup.WithContext(ctx)
	if !interruptible {
		g.SetLimit(ioConcurrency)
	}
	for _, set := range m.sets {
		for _, bucket := range set.Buckets {
			set, bucket := set, bucket
			g.Go(func() error {
				for i := 0; i < filesCount || (interruptible && filesCount <= 0); i++ {
					if interruptible && m.stopped() {
						return nil
					}
					if err := m.writeOne(gctx, set, bucket, prefix); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// StartIO uploads filesCount objects to every bucket and returns when done
func (m *DataCheckManager) StartIO(ctx context.Context, filesCount int, prefix string) error {
	logf.Log.Info("Starting IO", "buckets", m.bucketCount(), "filesCount", filesCount, "prefix", prefix)
	err := m.writeAll(ctx, filesCount, prefix, false)
	if err != nil {
		return errors.Wrap(err, "IO failed")
	}
	logf.Log.Info("IO complete", "objects", m.Objects())
	return nil
}

// StartIOAsync uploads in the background until filesCount objects per bucket
// are written or Stop is called, a filesCount of zero writes until stopped
func (m *DataCheckManager) StartIOAsync(ctx context.Context, filesCount int, prefix string) {
	logf.Log.Info("Starting background IO", "buckets", m.bucketCount(), "filesCount", filesCount, "prefix", prefix)
	g := &errgroup.Group{}
	g.Go(func() error {
		return m.writeAll(ctx, filesCount, prefix, true)
	})
	m.mu.Lock()
	m.writers = g
	m.mu.Unlock()
}

// Stop signals background writers to finish after their current object
func (m *DataCheckManager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Wait blocks until background writers are done
func (m *DataCheckManager) Wait() error {
	m.mu.Lock()
	g := m.writers
	m.mu.Unlock()
	if g == nil {
		return nil
	}
	return errors.Wrap(g.Wait(), "background IO failed")
}

func (m *DataCheckManager) snapshot() []objectRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]objectRef, 0, len(m.written))
	for ref := range m.written {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].bucket != refs[j].bucket {
			return refs[i].bucket < refs[j].bucket
		}
		return refs[i].key < refs[j].key
	})
	return refs
}

func (m *DataCheckManager) accountOf(user string) (common.S3Account, bool) {
	for _, set := range m.sets {
		if set.Account.UserName == user {
			return set.Account, true
		}
	}
	return common.S3Account{}, false
}

// readBack downloads every written object, comparing checksums when di is
// set and deleting the object when remove is set
func (m *DataCheckManager) readBack(ctx context.Context, di, remove bool) error {
	var (
		mu         sync.Mutex
		mismatches []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ioConcurrency)
	for _, ref := range m.snapshot() {
		ref := ref
		g.Go(func() error {
			account, ok := m.accountOf(ref.user)
			if !ok {
				return errors.Errorf("no account %s", ref.user)
			}
			s, err := m.store(gctx, account)
			if err != nil {
				return err
			}
			data, err := s.GetObjectBytes(gctx, ref.bucket, ref.key)
			if err != nil {
				return err
			}
			m.mu.Lock()
			expected := m.written[ref]
			m.mu.Unlock()
			if di && checksum(data) != expected {
				mu.Lock()
				mismatches = append(mismatches, ref.bucket+"/"+ref.key)
				mu.Unlock()
			}
			if remove {
				if err = s.DeleteObject(gctx, ref.bucket, ref.key); err != nil {
					return err
				}
				m.mu.Lock()
				delete(m.written, ref)
				m.mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(mismatches) != 0 {
		sort.Strings(mismatches)
		return errors.Errorf("data integrity check failed for %d objects: %v", len(mismatches), mismatches)
	}
	return nil
}

// StopIO stops background writers, reads every object back, checks its
// checksum when di is set and deletes it
func (m *DataCheckManager) StopIO(ctx context.Context, di bool) error {
	m.Stop()
	if err := m.Wait(); err != nil {
		return err
	}
	logf.Log.Info("Reading back objects", "objects", m.Objects(), "di", di)
	if err := m.readBack(ctx, di, true); err != nil {
		return errors.Wrap(err, "stop IO failed")
	}
	return nil
}

// Verify reads every object back and checks its checksum without deleting it
func (m *DataCheckManager) Verify(ctx context.Context) error {
	return m.readBack(ctx, true, false)
}

// Verification is a background Verify run
type Verification struct {
	done chan struct{}
	err  error
}

// VerifyAsync starts Verify in the background
func (m *DataCheckManager) VerifyAsync(ctx context.Context) *Verification {
	v := &Verification{done: make(chan struct{})}
	go func() {
		defer close(v.done)
		v.err = m.Verify(ctx)
	}()
	return v
}

// Wait returns the result of the verification once it is finished
func (v *Verification) Wait() error {
	<-v.done
	return v.err
}

func (m *DataCheckManager) bucketCount() int {
	n := 0
	for _, set := range m.sets {
		n += len(set.Buckets)
	}
	return n
}
