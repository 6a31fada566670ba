package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/sakif/codesphere/internal/language"
)

const (
	// workDir is where sources and build artifacts live inside a container.
	workDir = "/workspace"

	// languageLabel tags pooled containers so leftovers can be found with
	// `docker ps --filter label=codesphere.language`.
	languageLabel = "codesphere.language"

	maxCreateBackoff = 30 * time.Second
)

// Pool keeps warm containers for one language. A container serves a single
// run and is discarded afterwards; each discard asks the filler for a
// replacement.
type Pool struct {
	cli    *client.Client
	lang   language.Language
	image  string
	config Config
	logger *slog.Logger

	ready  chan string
	refill chan struct{}
	stop   chan struct{}

	wg       sync.WaitGroup
	start    sync.Once
	shutdown sync.Once
}

// NewPool creates a pool for lang running image. Call Start to fill it.
func NewPool(cli *client.Client, lang language.Language, image string, cfg Config, logger *slog.Logger) *Pool {
	size := max(cfg.PoolSize, 1)
	return &Pool{
		cli:    cli,
		lang:   lang,
		image:  image,
		config: cfg,
		logger: logger.With(slog.String("language", string(lang)), slog.String("image", image)),
		ready:  make(chan string, size),
		refill: make(chan struct{}, size),
		stop:   make(chan struct{}),
	}
}

// Start fills the pool in the background.
func (p *Pool) Start() {
	p.start.Do(func() {
		p.logger.Info("starting container pool", slog.Int("size", cap(p.ready)))
		for range cap(p.ready) {
			p.refill <- struct{}{}
		}
		p.wg.Add(1)
		go p.fill()
	})
}

// Stop ends the filler and removes every idle container.
func (p *Pool) Stop() {
	p.shutdown.Do(func() {
		p.logger.Info("stopping container pool")
		close(p.stop)
		p.wg.Wait()

		for {
			select {
			case id := <-p.ready:
				p.remove(id)
			default:
				return
			}
		}
	})
}

// Acquire takes a warm container, waiting until one is ready or ctx ends.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.ready:
		return id, nil
	case <-p.stop:
		return "", fmt.Errorf("container pool for %s is stopped", p.lang)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Discard removes a used container and schedules a replacement.
func (p *Pool) Discard(id string) {
	p.remove(id)
	select {
	case p.refill <- struct{}{}:
	default:
		// The filler already owes at least cap(ready) containers.
	}
}

// fill creates one container per refill request, backing off while the
// daemon keeps failing.
func (p *Pool) fill() {
	defer p.wg.Done()

	backoff := time.Second
	for {
		select {
		case <-p.stop:
			return
		case <-p.refill:
		}

		for {
			id, err := p.create()
			if err == nil {
				backoff = time.Second
				select {
				case p.ready <- id:
				case <-p.stop:
					p.remove(id)
					return
				}
				break
			}

			p.logger.Error("failed to create container",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-p.stop:
				return
			}
			backoff = min(backoff*2, maxCreateBackoff)
		}
	}
}

// create starts a container running `sleep infinity` with no network. The
// root filesystem is read-only; the work dir and /tmp are tmpfs mounts.
func (p *Pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			workDir: "rw,exec,size=64m,mode=1777",
			"/tmp":  "rw,exec,size=64m,mode=1777",
		},
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image:      p.image,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: workDir,
		User:       "nobody",
		Labels:     map[string]string{languageLabel: string(p.lang)},
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("starting container: %w", err)
	}

	return resp.ID, nil
}

func (p *Pool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("failed to remove container",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
