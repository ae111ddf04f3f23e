package media

import (
	"context"
	"log"
	"time"

	"github.com/anoixa/media-server/config"
	"github.com/anoixa/media-server/database/models"
	"github.com/anoixa/media-server/internal/preview"
	"github.com/anoixa/media-server/utils"
	"golang.org/x/sync/errgroup"
)

const prewarmTimeout = 2 * time.Minute

// prewarmTask 上传成功后在协程池中生成配置的预览尺寸
type prewarmTask struct {
	previews *preview.Generator
	record   models.MediaFile
	sizes    []config.Dimension
}

func (t *prewarmTask) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), prewarmTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for _, size := range t.sizes {
		g.Go(func() error {
			_, err := t.previews.GetOrCreate(ctx, &t.record, size.Width, size.Height)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[Prewarm] Failed to prewarm previews for %s: %v", t.record.ID, err)
		return
	}
	utils.LogIfDevf("[Prewarm] Generated %d previews for %s", len(t.sizes), t.record.ID)
}

func (s *Service) schedulePrewarm(record *models.MediaFile) {
	if s.pool == nil || s.previews == nil || len(s.opts.PrewarmSizes) == 0 {
		return
	}

	task := &prewarmTask{
		previews: s.previews,
		record:   *record,
		sizes:    s.opts.PrewarmSizes,
	}
	if !s.pool.Submit(task) {
		log.Printf("[Prewarm] Queue full, skipped prewarm for %s", record.ID)
	}
}
