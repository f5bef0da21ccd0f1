// Package registrar drives one full synchronization pass for a container:
// start it, harvest its desktop data, transform the descriptors for host
// launch, publish them to the desktop-entry daemon, and clean up.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskhand/deskhand/internal/desktop"
	"github.com/deskhand/deskhand/internal/driver"
	"github.com/deskhand/deskhand/internal/icons"
	"github.com/deskhand/deskhand/internal/logging"
	"github.com/deskhand/deskhand/internal/metrics"
	"github.com/deskhand/deskhand/internal/registry"
	"github.com/deskhand/deskhand/internal/runtime"
	"github.com/deskhand/deskhand/internal/state"
)

// Stage names the phase of a synchronization pass. Stages advance strictly
// forward; a pass that fails reports the stage it failed in.
type Stage string

const (
	StageStarting     Stage = "starting"
	StageHarvesting   Stage = "harvesting"
	StageTransforming Stage = "transforming"
	StagePublishing   Stage = "publishing"
	StageCleaningUp   Stage = "cleaning_up"
)

// PassError wraps a failure with the stage it occurred in.
type PassError struct {
	Stage Stage
	Err   error
}

func (e *PassError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *PassError) Unwrap() error { return e.Err }

func failAt(stage Stage, err error) *PassError {
	metrics.IncPassFailure(string(stage))
	return &PassError{Stage: stage, Err: err}
}

// dataDirsProbe prints the container's XDG data search path, one colon-joined
// line. Plain `echo $XDG_DATA_DIRS` would expand on the host side, so the
// value is pulled out of the container's environment listing instead.
const dataDirsProbe = `env | grep XDG_DATA_DIRS | cut -d'=' -f2`

// pixmapSource is the fixed flat icon directory harvested alongside the
// themed icon trees.
const pixmapSource = "/usr/share/pixmaps"

// Registrar synchronizes one container's applications into the host session.
type Registrar struct {
	driver        driver.Driver
	registry      registry.Client
	workspaceRoot string
}

// New builds a registrar publishing through reg, reaching containers through
// drv, and staging harvested files under workspaceRoot.
func New(drv driver.Driver, reg registry.Client, workspaceRoot string) *Registrar {
	return &Registrar{driver: drv, registry: reg, workspaceRoot: workspaceRoot}
}

// application is one descriptor ready for publishing.
type application struct {
	id       string
	text     string
	iconName string
	icon     *icons.Asset
}

// Sync runs one complete pass for the named container. The container name is
// the ownership key for everything published, so re-running a pass replaces
// the previous publication rather than accumulating alongside it. The
// workspace is removed on every exit path.
func (r *Registrar) Sync(ctx context.Context, name string, kind runtime.Kind) error {
	log := logging.Get().With().
		Str("container", name).
		Str("runtime", string(kind)).
		Str("pass", uuid.NewString()[:8]).
		Logger()
	begin := time.Now()

	if !kind.Supported() {
		log.Warn().Msg("runtime kind carries no launch templates, skipping container")
		return failAt(StageStarting, fmt.Errorf("runtime %q: %w", kind, driver.ErrUnsupportedRuntime))
	}

	log.Info().Msg("starting container")
	if err := r.driver.Start(ctx, kind, name); err != nil {
		return failAt(StageStarting, fmt.Errorf("start container: %w", err))
	}

	ws, err := newWorkspace(r.workspaceRoot, name)
	if err != nil {
		return failAt(StageHarvesting, err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			log.Warn().Err(err).Str("stage", string(StageCleaningUp)).Msg("workspace removal failed")
		}
	}()

	if err := r.harvest(ctx, log, kind, name, ws); err != nil {
		return failAt(StageHarvesting, err)
	}

	apps := r.transform(log, kind, name, ws)
	log.Info().Int("applications", len(apps)).Msg("descriptors prepared")

	entries, iconCount := r.publish(ctx, log, name, apps)

	if err := state.AddPublishRecord(state.PublishRecord{
		Owner:     name,
		Entries:   entries,
		Icons:     iconCount,
		Timestamp: time.Now(),
	}); err != nil {
		log.Warn().Err(err).Msg("failed to persist publish record")
	}

	metrics.IncPass()
	metrics.ObserveSyncDuration(time.Since(begin).Seconds())
	log.Info().
		Int("entries", entries).
		Int("icons", iconCount).
		Dur("elapsed", time.Since(begin)).
		Msg("synchronization pass complete")
	return nil
}

// harvest pulls the container's desktop data into the workspace. Each XDG
// data dir contributes an applications/ and icons/ subtree; a fixed pixmap
// directory is copied last. A source that fails to copy is skipped, not
// fatal, because containers routinely lack some of the directories.
func (r *Registrar) harvest(ctx context.Context, log zerolog.Logger, kind runtime.Kind, name string, ws *Workspace) error {
	out, err := r.driver.Exec(ctx, kind, name, dataDirsProbe)
	if err != nil {
		return fmt.Errorf("read XDG_DATA_DIRS: %w", err)
	}
	dataDirs := strings.Split(strings.TrimSpace(out.Stdout), ":")

	copied := 0
	for _, dir := range dataDirs {
		if dir == "" {
			continue
		}
		for _, pair := range [][2]string{
			{path.Join(dir, "applications"), ws.Applications()},
			{path.Join(dir, "icons"), ws.Icons()},
		} {
			src, dst := pair[0], pair[1]
			if err := r.driver.CopyOut(ctx, kind, name, src, dst); err != nil {
				metrics.IncHarvestSkip()
				log.Debug().Err(err).Str("source", src).Msg("skipping data source")
				continue
			}
			copied++
		}
	}
	if err := r.driver.CopyOut(ctx, kind, name, pixmapSource, ws.Pixmaps()); err != nil {
		metrics.IncHarvestSkip()
		log.Debug().Err(err).Str("source", pixmapSource).Msg("skipping pixmap source")
	}
	log.Debug().Int("sources", copied).Strs("data_dirs", dataDirs).Msg("harvest complete")
	return nil
}

// transform rewrites and decodes every harvested descriptor. Files that do
// not parse as desktop entries and entries marked NoDisplay are dropped;
// neither aborts the pass.
func (r *Registrar) transform(log zerolog.Logger, kind runtime.Kind, name string, ws *Workspace) []application {
	var apps []application
	_ = filepath.WalkDir(ws.Applications(), func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("file", p).Msg("unreadable descriptor")
			return nil
		}
		text := desktop.Rewrite(string(raw), kind, name)
		entry, err := desktop.Decode(p, text)
		if err != nil {
			metrics.IncDecodeFailure()
			log.Warn().Err(err).Str("file", p).Msg("discarding undecodable descriptor")
			return nil
		}
		if entry.NoDisplay {
			log.Debug().Str("app", entry.ID).Msg("discarding NoDisplay entry")
			return nil
		}
		app := application{id: entry.ID, text: text, iconName: entry.Icon}
		if entry.Icon != "" {
			if asset, ok := icons.Resolve(entry.Icon, ws.Icons(), ws.Pixmaps()); ok {
				app.icon = &asset
			} else {
				metrics.IncIconMiss()
				log.Debug().Str("app", entry.ID).Str("icon", entry.Icon).Msg("no icon asset found")
			}
		}
		apps = append(apps, app)
		return nil
	})
	return apps
}

// publish retracts the owner's previous publication, then pushes every
// prepared descriptor and its icon. Per-item failures are logged and counted
// but never stop the remaining items.
func (r *Registrar) publish(ctx context.Context, log zerolog.Logger, owner string, apps []application) (entries, iconCount int) {
	if err := r.registry.RetractOwner(ctx, owner); err != nil {
		metrics.IncRegistryError()
		log.Warn().Err(err).Msg("retract of previous publication failed, pushing anyway")
	}
	for _, app := range apps {
		if err := r.registry.Register(ctx, app.id, app.text, owner); err != nil {
			metrics.IncRegistryError()
			log.Error().Err(err).Str("app", app.id).Msg("entry registration failed")
			continue
		}
		metrics.IncEntryRegistered()
		entries++

		if app.icon == nil || app.icon.Format == icons.FormatOther {
			continue
		}
		data, err := os.ReadFile(app.icon.Path)
		if err != nil {
			log.Warn().Err(err).Str("app", app.id).Str("asset", app.icon.Path).Msg("icon asset unreadable")
			continue
		}
		if err := r.registry.RegisterIcon(ctx, app.iconName, data, owner); err != nil {
			metrics.IncRegistryError()
			log.Error().Err(err).Str("app", app.id).Str("icon", app.iconName).Msg("icon registration failed")
			continue
		}
		metrics.IncIconRegistered()
		iconCount++
	}
	return entries, iconCount
}

// Retract removes everything published under owner and drops its publish
// record. Used for shrunken container lists and stale-owner recovery.
func (r *Registrar) Retract(ctx context.Context, owner string) error {
	if err := r.registry.RetractOwner(ctx, owner); err != nil {
		metrics.IncRegistryError()
		return fmt.Errorf("retract owner %s: %w", owner, err)
	}
	if err := state.RemovePublishRecord(owner); err != nil {
		return err
	}
	return nil
}

// IsUnsupported reports whether err is a pass failure caused by a runtime
// kind without launch templates.
func IsUnsupported(err error) bool {
	return errors.Is(err, driver.ErrUnsupportedRuntime)
}
