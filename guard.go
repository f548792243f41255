package htmlpdf

import "context"

// guardedConn checks the supervisor before and after every round trip,
// so no protocol call is issued once the call is canceled or has failed.
type guardedConn struct {
	conn Conn
	sup  *supervisor
}

var _ Conn = (*guardedConn)(nil)

func (g *guardedConn) Evaluate(ctx context.Context, expression string) (Evaluation, error) {
	var ev Evaluation
	err := g.sup.guard(func() error {
		var err error
		ev, err = g.conn.Evaluate(ctx, expression)
		return err
	})
	return ev, err
}

func (g *guardedConn) EnableDomains(ctx context.Context) error {
	return g.sup.guard(func() error { return g.conn.EnableDomains(ctx) })
}

func (g *guardedConn) ClearBrowserCache(ctx context.Context) error {
	return g.sup.guard(func() error { return g.conn.ClearBrowserCache(ctx) })
}

func (g *guardedConn) SetCookies(ctx context.Context, cookies []Cookie) error {
	return g.sup.guard(func() error { return g.conn.SetCookies(ctx, cookies) })
}

func (g *guardedConn) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	return g.sup.guard(func() error { return g.conn.SetExtraHeaders(ctx, headers) })
}

// Subscribe is local bookkeeping, not a round trip.
func (g *guardedConn) Subscribe(ctx context.Context, h EventHandlers) {
	g.conn.Subscribe(ctx, h)
}

// LoadFired is local bookkeeping, not a round trip.
func (g *guardedConn) LoadFired(ctx context.Context) func() error {
	return g.conn.LoadFired(ctx)
}

func (g *guardedConn) Navigate(ctx context.Context, url string) error {
	return g.sup.guard(func() error { return g.conn.Navigate(ctx, url) })
}

func (g *guardedConn) RootFrameID(ctx context.Context) (string, error) {
	var id string
	err := g.sup.guard(func() error {
		var err error
		id, err = g.conn.RootFrameID(ctx)
		return err
	})
	return id, err
}

func (g *guardedConn) SetDocumentContent(ctx context.Context, frameID, html string) error {
	return g.sup.guard(func() error { return g.conn.SetDocumentContent(ctx, frameID, html) })
}

func (g *guardedConn) PrintToPDF(ctx context.Context, opts *PrintOptions) ([]byte, error) {
	var data []byte
	err := g.sup.guard(func() error {
		var err error
		data, err = g.conn.PrintToPDF(ctx, opts)
		return err
	})
	return data, err
}
