// Package client owns the Telegram side of an export run: session, channel
// resolution and message iteration. The governor consumes its task sequence
// and never touches the wire protocol directly.
package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/tg"

	"github.com/trubeko66/tg-export/common/cache"
	"github.com/trubeko66/tg-export/common/tdler"
	"github.com/trubeko66/tg-export/config"
	"github.com/trubeko66/tg-export/core/governor"
	"github.com/trubeko66/tg-export/pkg/tmedia"
)

// sizeProbeLimit caps how many messages the media size estimate scans.
const sizeProbeLimit = 500

type Exporter struct {
	cfg    config.Config
	sizes  *cache.SizeCache
	logger *log.Logger
}

func NewExporter(cfg config.Config, sizes *cache.SizeCache, logger *log.Logger) *Exporter {
	return &Exporter{
		cfg:    cfg,
		sizes:  sizes,
		logger: logger.WithPrefix("client"),
	}
}

// Run connects, resolves the configured channel and drives the governor over
// its media attachments until the history is exhausted or ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	if e.cfg.Export.Channel == "" {
		return errors.New("no channel configured")
	}

	tgc := telegram.NewClient(e.cfg.Telegram.AppID, e.cfg.Telegram.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: e.cfg.Telegram.Session},
	})
	return tgc.Run(ctx, func(ctx context.Context) error {
		status, err := tgc.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to check auth status: %w", err)
		}
		if !status.Authorized {
			return errors.New("session is not authorized, log in before exporting")
		}

		api := tgc.API()
		peer, err := resolveChannel(ctx, api, e.cfg.Export.Channel)
		if err != nil {
			return err
		}

		if size, err := e.channelMediaSize(ctx, api, peer, e.cfg.Export.Channel); err != nil {
			e.logger.Warnf("Media size estimate failed: %v", err)
		} else {
			e.logger.Infof("Estimated media size for %s: %.1f MB", e.cfg.Export.Channel, float64(size)/(1<<20))
		}

		fetcher := tdler.NewFetcher(tdler.Options{
			Threads:         e.cfg.Export.Threads,
			OverwritePolicy: e.cfg.Export.OverwritePolicy,
			Dedupe:          e.cfg.Export.Dedupe,
		}, e.logger)

		sched, err := governor.NewScheduler(governor.Config{
			MaxWorkers:     e.cfg.Governor.MaxWorkers,
			InitialWorkers: e.cfg.Governor.InitialWorkers,
			MinDelay:       e.cfg.Governor.MinDelay,
			MaxDelay:       e.cfg.Governor.MaxDelay,
		}, fetcher, e.logger)
		if err != nil {
			return err
		}

		var done, failed int
		for outcome := range sched.Run(ctx, e.tasks(ctx, api, peer)) {
			switch outcome.Status {
			case governor.StatusSucceeded:
				done++
				e.logger.Debugf("Downloaded %s (%d bytes, attempt %d)", outcome.Dest, outcome.Bytes, outcome.Attempts)
			default:
				failed++
				e.logger.Warnf("Gave up on %s: %s (%v)", outcome.Dest, outcome.Status, outcome.Err)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		stats := sched.Stats()
		e.logger.Infof("📦 Export finished: %d file(s), %d failed, %.1f%% success rate, %d flood wait(s)",
			done, failed, stats.SuccessRate, stats.FloodWaits)
		return nil
	})
}

// tasks lazily walks the channel history and yields one download task per
// supported attachment. Only one batch worth of tasks is ever materialized.
func (e *Exporter) tasks(ctx context.Context, api *tg.Client, peer tg.InputPeerClass) iter.Seq[*governor.DownloadTask] {
	mediaDir := filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.Channel, "media")
	return func(yield func(*governor.DownloadTask) bool) {
		it := query.Messages(api).GetHistory(peer).BatchSize(100).Iter()
		scanned := 0
		for it.Next(ctx) {
			msg, ok := it.Value().Msg.(*tg.Message)
			if !ok {
				continue
			}
			scanned++
			if e.cfg.Export.Limit > 0 && scanned > e.cfg.Export.Limit {
				return
			}
			media, ok := msg.GetMedia()
			if !ok || !tmedia.IsSupported(media) {
				continue
			}
			file, err := tmedia.FromMedia(media, api,
				tmedia.WithNameIfEmpty(fmt.Sprintf("msg_%d.bin", msg.ID)))
			if err != nil {
				e.logger.Warnf("Skipping media of message %d: %v", msg.ID, err)
				continue
			}
			dest := filepath.Join(mediaDir, fmt.Sprintf("msg_%d_%s", msg.ID, file.Name()))
			if !yield(governor.NewTask(file, dest)) {
				return
			}
		}
		if err := it.Err(); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Errorf("History iteration stopped: %v", err)
		}
	}
}

// channelMediaSize estimates the channel's total attachment size by probing
// recent history. The result is cached so repeated status displays do not
// re-walk the channel.
func (e *Exporter) channelMediaSize(ctx context.Context, api *tg.Client, peer tg.InputPeerClass, key string) (int64, error) {
	return e.sizes.Fetch(ctx, "media_size_"+key, func(ctx context.Context) (int64, error) {
		var total int64
		it := query.Messages(api).GetHistory(peer).BatchSize(100).Iter()
		for scanned := 0; scanned < sizeProbeLimit && it.Next(ctx); scanned++ {
			msg, ok := it.Value().Msg.(*tg.Message)
			if !ok {
				continue
			}
			media, ok := msg.GetMedia()
			if !ok || !tmedia.IsSupported(media) {
				continue
			}
			if file, err := tmedia.FromMedia(media, api); err == nil {
				total += file.Size()
			}
		}
		return total, it.Err()
	})
}

func resolveChannel(ctx context.Context, api *tg.Client, username string) (tg.InputPeerClass, error) {
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel %q: %w", username, err)
	}
	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
		}
	}
	return nil, fmt.Errorf("%q did not resolve to a channel", username)
}
