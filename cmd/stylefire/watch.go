package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/incoming"
	"github.com/standardbeagle/stylefire/internal/types"
	"github.com/standardbeagle/stylefire/internal/watch"

	"github.com/urfave/cli/v2"
)

// watchCommand reads events from stdin and queues them on the component while
// the project root is watched. Removed stylesheets drop out of the tree, and
// a changed config file takes effect for the following events. The final
// model is printed on interrupt.
func watchCommand(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	defer p.close()

	w, err := watch.New(p.cfg)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.SetCallbacks(
		func(changes []watch.Change) {
			for _, ch := range changes {
				switch ch.Type {
				case watch.EventRemove, watch.EventRename:
					p.tree.RemoveFile(ch.Path)
				case watch.EventCreate, watch.EventWrite:
					p.tree.RestoreFile(ch.Path)
				}
			}
			if stale := p.component.SourceChanged(); stale > 0 {
				log.Printf("%d pending changes no longer match the sources", stale)
			}
		},
		func(cfg *config.Config, err error) {
			if err != nil {
				log.Printf("Config reload failed, keeping previous settings: %v", err)
				return
			}
			cfg.Project.Root = p.tree.Root()
			p.component.UpdateConfig(cfg)
			log.Printf("Config reloaded")
		},
	)
	if err := w.Start(); err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			log.Printf("Error stopping watcher: %v", err)
		}
	}()

	p.component.Start()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- readRecords(c.App.Reader, func(_ int, rec record) error {
			return dispatch(ctx, p.component, rec)
		})
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down", sig)
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, incoming.ErrStopped) {
			return err
		}
		// stdin closed; keep watching until interrupted
		select {
		case sig := <-sigChan:
			log.Printf("Received %v, shutting down", sig)
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}

	cancel()
	p.component.Stop()
	fmt.Fprintln(c.App.Writer, p.formatter.Format(p.component.Model()))
	return nil
}

// dispatch queues an edit or handles a notification. Notifications are only
// handled once the edits queued before them have been merged.
func dispatch(ctx context.Context, comp *incoming.Component, rec record) error {
	if rec.Event == "" {
		return comp.Submit(ctx, rec.ChangeEvent)
	}
	if err := comp.Drain(ctx); err != nil {
		return err
	}
	comp.HandleEvent(types.Event{Name: rec.Event})
	return nil
}
