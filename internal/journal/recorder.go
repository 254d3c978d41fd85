package journal

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/alucardeht/crawl-worker/internal/engine"
	"github.com/alucardeht/crawl-worker/internal/logger"
	"github.com/alucardeht/crawl-worker/internal/rpc"
	"github.com/alucardeht/crawl-worker/internal/tools"
	"github.com/alucardeht/crawl-worker/pkg/protocol"
)

var log = logger.ForComponent("journal")

// Recorder writes every answered request to a Store. Write failures are
// logged and otherwise ignored.
type Recorder struct {
	store   *Store
	session string
}

func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store, session: xid.New().String()}
}

// Session identifies this worker run in the journal.
func (r *Recorder) Session() string {
	return r.session
}

func (r *Recorder) Observe(ctx context.Context, call rpc.Call) {
	e := &Entry{
		Session:   r.session,
		RequestID: protocol.IDString(call.ID),
		Method:    call.Method,
		Target:    call.Target,
		Status:    StatusOK,
		Latency:   call.Duration,
		CreatedAt: call.Started,
		Pages:     pagesOf(call),
	}
	if call.Err != nil {
		e.Status = StatusError
		e.ErrorKind = string(tools.KindOf(call.Err))
		e.Message = call.Err.Error()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.store.Record(writeCtx, e); err != nil {
		log.Warn("failed to journal request", "method", call.Method, "error", err)
	}
}

func pagesOf(call rpc.Call) []PageRecord {
	switch res := call.Result.(type) {
	case *engine.CrawlResult:
		pages := make([]PageRecord, 0, len(res.Pages))
		for _, p := range res.Pages {
			pages = append(pages, PageRecord{
				URL:           p.URL,
				Title:         p.Title,
				LinkCount:     len(p.Links),
				ContentLength: len(p.Content),
			})
		}
		return pages
	case *engine.HeadlessResult:
		return []PageRecord{{
			URL:           call.Target,
			LinkCount:     len(res.Links),
			ContentLength: len(res.Markdown),
		}}
	default:
		return nil
	}
}
