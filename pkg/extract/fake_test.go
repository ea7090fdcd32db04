package extract

import (
	"context"
	"sync"

	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/source"
	"github.com/quarryhq/quarry/pkg/table"
)

// fakeProvider scripts per-SQL responses so engine behavior can be tested
// without a live database. Counters are guarded because shard workers open
// and close connections concurrently.
type fakeProvider struct {
	mu       sync.Mutex
	script   map[string]fakeResponse
	opens    int
	closes   int
	failOpen bool
}

type fakeResponse struct {
	res *table.Result
	err error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{script: make(map[string]fakeResponse)}
}

func (p *fakeProvider) on(sql string, res *table.Result) {
	p.script[sql] = fakeResponse{res: res}
}

func (p *fakeProvider) onError(sql string, msg string) {
	p.script[sql] = fakeResponse{err: qerrors.New(qerrors.ErrorTypeQuery, msg)}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Open(ctx context.Context) (source.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOpen {
		return nil, qerrors.New(qerrors.ErrorTypeConnection, "connection refused")
	}
	p.opens++
	return &fakeConn{provider: p}, nil
}

func (p *fakeProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func (p *fakeProvider) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

type fakeConn struct {
	provider *fakeProvider
}

func (c *fakeConn) Query(ctx context.Context, sqlText string) (*table.Result, error) {
	c.provider.mu.Lock()
	resp, ok := c.provider.script[sqlText]
	c.provider.mu.Unlock()

	if !ok {
		return nil, qerrors.New(qerrors.ErrorTypeQuery, "unexpected query: "+sqlText)
	}
	if resp.err != nil {
		return nil, resp.err
	}

	// Hand back a copy so accumulating callers never mutate the script.
	out := table.NewResult()
	out.Columns = resp.res.Columns
	out.Rows = append(out.Rows, resp.res.Rows...)
	return out, nil
}

func (c *fakeConn) Close() error {
	c.provider.mu.Lock()
	c.provider.closes++
	c.provider.mu.Unlock()
	return nil
}

// rowsResult builds a scripted result with the given columns and rows.
func rowsResult(columns []string, rows ...table.Row) *table.Result {
	res := table.NewResult()
	res.Columns = columns
	res.Rows = rows
	return res
}
