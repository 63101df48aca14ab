package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/offline"
)

var ErrNotResolvable = core.NewValidationError(errors.New("change is neither a conflict nor failed"))

type Status struct {
	Online    bool      `json:"online"`
	Pending   int       `json:"pending"`
	Conflicts int       `json:"conflicts"`
	Failed    int       `json:"failed"`
	LastSync  time.Time `json:"last_sync"`
}

// Report sums up a Sync run.
type Report struct {
	Pushed    int `json:"pushed"`
	Dropped   int `json:"dropped"` // overridden by a newer server copy
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"` // left pending when the run stopped early
}

// Syncer replays the changes queued offline and refreshes the cache.
type Syncer struct {
	client   *Client
	store    offline.Store
	policies *offline.PolicyTable
	logger   core.Logger

	mu sync.Mutex // one run at a time
}

func New(client *Client, store offline.Store, policies *offline.PolicyTable, logger core.Logger) *Syncer {
	return &Syncer{client: client, store: store, policies: policies, logger: logger}
}

func (s *Syncer) Status(ctx context.Context) (Status, error) {
	counts, err := s.store.CountChanges(ctx)
	if err != nil {
		return Status{}, errors.Wrap(err, "counting changes")
	}
	st := Status{Online: s.client.Online(), Pending: counts.Pending, Conflicts: counts.Conflicts, Failed: counts.Failed}

	last, err := s.store.Meta(ctx, metaLastSync)
	if err != nil {
		return Status{}, errors.Wrap(err, "reading last sync")
	}
	if last != "" {
		if st.LastSync, err = time.Parse(time.RFC3339Nano, last); err != nil {
			return Status{}, errors.Wrap(err, "parsing last sync")
		}
	}
	return st, nil
}

// Sync replays the pending changes in queue order. The run stops, leaving the rest
// pending, as soon as the API is unreachable (ErrOffline) or fails with a 5xx.
func (s *Syncer) Sync(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes, err := s.store.Changes(ctx, offline.ChangePending)
	if err != nil {
		return Report{}, errors.Wrap(err, "listing changes")
	}

	var rep Report
	for i, queued := range changes {
		// an earlier push may have rebased it
		ch, err := s.store.GetChange(ctx, queued.ID)
		if err != nil {
			return rep, errors.Wrap(err, "reading change")
		}
		if err = s.replay(ctx, ch, &rep); err != nil {
			rep.Remaining = len(changes) - i
			return rep, err
		}
	}
	if err = s.store.SetMeta(ctx, metaLastSync, core.Now().Format(time.RFC3339Nano)); err != nil {
		return rep, errors.Wrap(err, "saving last sync")
	}
	if len(changes) > 0 {
		s.logger.Info(fmt.Sprintf("syncer: %d pushed, %d dropped, %d conflicts, %d failed", rep.Pushed, rep.Dropped, rep.Conflicts, rep.Failed))
	}
	return rep, nil
}

func (s *Syncer) replay(ctx context.Context, ch offline.Change, rep *Report) error {
	policy := s.policies.Lookup(ch.Method, ch.Path)
	body := []byte(ch.Body)

	rp := recordPath(ch.Path)
	if ch.Method != http.MethodPost && rp != "" && len(ch.Base) > 0 && policy.Strategy != offline.ClientWins {
		res, err := s.client.send(ctx, http.MethodGet, rp, nil)
		if err != nil {
			// a record the server no longer returns is left to the push to settle
			if apiErr, ok := IsAPIError(err); !ok || apiErr.Status >= http.StatusInternalServerError {
				return s.retryLater(ctx, ch, err)
			}
		} else if done, err := s.reconcile(ctx, ch, policy, res.Body, &body, rep); done || err != nil {
			return err
		}
	}
	return s.push(ctx, ch, policy, body, rep)
}

// reconcile applies the endpoint strategy when the server copy changed since the change
// was made. It reports whether the change is settled without a push.
func (s *Syncer) reconcile(ctx context.Context, ch offline.Change, policy offline.Policy, serverBody json.RawMessage, body *[]byte, rep *Report) (bool, error) {
	base, err := offline.Decode(ch.Base)
	if err != nil {
		return false, nil
	}
	server, err := offline.Decode(serverBody)
	if err != nil || !offline.ServerIsNewer(base, server) {
		return false, nil
	}

	switch policy.Strategy {
	case offline.ServerWins:
		if err = s.client.cacheRecords(ctx, ch.Resource, serverBody); err != nil {
			return true, errors.Wrap(err, "caching server copy")
		}
		if err = s.store.DeleteChange(ctx, ch.ID); err != nil {
			return true, errors.Wrap(err, "dropping change")
		}
		rep.Dropped++
		return true, nil

	case offline.Manual:
		ch.Status = offline.ChangeConflict
		ch.Server = serverBody
		if err = s.store.UpdateChange(ctx, ch); err != nil {
			return true, errors.Wrap(err, "parking conflict")
		}
		rep.Conflicts++
		return true, nil

	case offline.Merge:
		if ch.Method == http.MethodDelete {
			return false, nil
		}
		local, err := offline.Decode(ch.Body)
		if err != nil {
			return false, nil
		}
		merged := offline.MergeFields(base, local, server)
		out := make(map[string]interface{}, len(local))
		for k := range local {
			out[k] = merged[k]
		}
		if *body, err = json.Marshal(out); err != nil {
			return true, errors.Wrap(err, "encoding merged body")
		}
	}
	return false, nil
}

func (s *Syncer) push(ctx context.Context, ch offline.Change, policy offline.Policy, body []byte, rep *Report) error {
	res, err := s.client.send(ctx, ch.Method, ch.Path, body)
	if err != nil {
		apiErr, ok := IsAPIError(err)
		if !ok || apiErr.Status >= http.StatusInternalServerError {
			return s.retryLater(ctx, ch, err)
		}
		ch.Status = offline.ChangeFailed
		ch.Attempts++
		ch.LastError = apiErr.Message
		if err = s.store.UpdateChange(ctx, ch); err != nil {
			return errors.Wrap(err, "marking change failed")
		}
		s.logger.Warn(fmt.Sprintf("syncer: %s %s rejected: %s", ch.Method, ch.Path, apiErr.Message))
		rep.Failed++
		return nil
	}

	s.client.setOnline(true)
	if policy.Cacheable {
		if err = s.client.cacheResponse(ctx, ch.Method, ch.Path, res); err != nil {
			s.logger.Error(fmt.Sprintf("syncer: caching %s: %v", ch.Path, err), err)
		}
	}
	if err = s.store.DeleteChange(ctx, ch.ID); err != nil {
		return errors.Wrap(err, "removing pushed change")
	}
	if err = s.rebase(ctx, ch, res.Body); err != nil {
		return err
	}
	rep.Pushed++
	return nil
}

// rebase makes the server copy returned for pushed the base of the later pending
// changes of the same record, which were made over the optimistic cache copy.
func (s *Syncer) rebase(ctx context.Context, pushed offline.Change, serverBody json.RawMessage) error {
	rp := recordPath(pushed.Path)
	if rp == "" || pushed.Method == http.MethodPost || pushed.Method == http.MethodDelete {
		return nil
	}
	if server, err := offline.Decode(serverBody); err != nil || len(server) == 0 {
		return nil
	}

	pending, err := s.store.Changes(ctx, offline.ChangePending)
	if err != nil {
		return errors.Wrap(err, "listing changes")
	}
	for _, ch := range pending {
		if ch.ID <= pushed.ID || len(ch.Base) == 0 || recordPath(ch.Path) != rp {
			continue
		}
		ch.Base = serverBody
		if err = s.store.UpdateChange(ctx, ch); err != nil {
			return errors.Wrap(err, "rebasing change")
		}
	}
	return nil
}

// retryLater keeps ch pending and returns the error stopping the run.
func (s *Syncer) retryLater(ctx context.Context, ch offline.Change, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	ch.Attempts++
	ch.LastError = cause.Error()
	if err := s.store.UpdateChange(ctx, ch); err != nil {
		return errors.Wrap(err, "updating change")
	}
	if _, ok := IsAPIError(cause); ok {
		return cause
	}
	s.client.setOnline(false)
	return ErrOffline
}

// Resolve settles a conflict or a failed change: keepLocal pushes the local body as is,
// otherwise the change is dropped and the server copy, if any, cached.
func (s *Syncer) Resolve(ctx context.Context, id int64, keepLocal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.store.GetChange(ctx, id)
	if err != nil {
		return err
	}
	if ch.Status != offline.ChangeConflict && ch.Status != offline.ChangeFailed {
		return ErrNotResolvable
	}

	if !keepLocal {
		if len(ch.Server) > 0 {
			if err = s.client.cacheRecords(ctx, ch.Resource, ch.Server); err != nil {
				return errors.Wrap(err, "caching server copy")
			}
		}
		return errors.Wrap(s.store.DeleteChange(ctx, ch.ID), "dropping change")
	}

	var rep Report
	if err = s.push(ctx, ch, s.policies.Lookup(ch.Method, ch.Path), ch.Body, &rep); err != nil {
		return err
	}
	if rep.Failed > 0 {
		latest, err := s.store.GetChange(ctx, id)
		if err != nil {
			return err
		}
		return &APIError{Status: http.StatusBadRequest, Message: latest.LastError}
	}
	return nil
}

// Pull refreshes the cached collections of resources, every pulled collection when
// none is given. Collections are fetched concurrently; 5xx answers are retried.
func (s *Syncer) Pull(ctx context.Context, resources ...string) error {
	var endpoints []string
	for _, ep := range s.policies.PullEndpoints() {
		res, _ := offline.Resource(ep)
		if len(resources) == 0 || core.StringInSlice(res, resources) {
			endpoints = append(endpoints, ep)
		}
	}
	if len(endpoints) == 0 {
		return core.NewValidationError(fmt.Errorf("nothing to pull for %v", resources))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			return s.pull(gctx, ep)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Wrap(s.store.SetMeta(ctx, metaLastSync, core.Now().Format(time.RFC3339Nano)), "saving last sync")
}

func (s *Syncer) pull(ctx context.Context, endpoint string) error {
	var res Response
	op := func() error {
		var err error
		res, err = s.client.send(ctx, http.MethodGet, endpoint, nil)
		if apiErr, ok := IsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		if unreachable(ctx, err) {
			return backoff.Permanent(ErrOffline)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)); err != nil {
		if errors.Cause(err) == ErrOffline {
			s.client.setOnline(false)
		}
		return errors.Wrapf(err, "pulling %s", endpoint)
	}
	s.client.setOnline(true)
	return errors.Wrapf(s.client.cacheResponse(ctx, http.MethodGet, endpoint, res), "caching %s", endpoint)
}

// Run checks the connection every interval and syncs when the API is reachable,
// until ctx is done.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	if !s.client.Ping(ctx) {
		return
	}
	counts, err := s.store.CountChanges(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("syncer: %v", err), err)
		return
	}
	if counts.Pending == 0 {
		return
	}
	if _, err = s.Sync(ctx); err != nil && errors.Cause(err) != ErrOffline && ctx.Err() == nil {
		s.logger.Error(fmt.Sprintf("syncer: %v", err), err)
	}
}
