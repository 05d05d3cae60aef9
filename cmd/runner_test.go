package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/shared"
	tu "github.com/desertthunder/plexlist/internal/testing"
)

type fakeSource struct {
	playlist *models.SourcePlaylist
	err      error
}

func (f *fakeSource) Name() string     { return services.QQName }
func (f *fakeSource) Platform() string { return services.QQPlatform }

func (f *fakeSource) FetchPlaylist(ctx context.Context, id string) (*models.SourcePlaylist, error) {
	if f.err != nil {
		return nil, f.err
	}
	pl := *f.playlist
	pl.ID = id
	return &pl, nil
}

type testCLI struct {
	runner     *Runner
	output     *bytes.Buffer
	library    *tu.FakeLibrary
	source     *fakeSource
	configPath string
	dir        string
}

// newTestCLI writes a config pointing the database into a temp dir and wires fakes for Plex and the sources.
func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()

	cfg := shared.DefaultConfig()
	cfg.Plex.Token = "secret"
	cfg.Database.Path = filepath.Join(dir, "history.db")
	configPath := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(configPath, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	lib := tu.NewFakeLibrary(
		tu.Track("1", "Yesterday", "The Beatles"),
		tu.Track("2", "Help!", "The Beatles"),
	)
	src := &fakeSource{playlist: &models.SourcePlaylist{
		Title:    "Favourites",
		Platform: services.QQPlatform,
		Songs: []models.SongRef{
			{Title: "Yesterday", Artist: "The Beatles"},
			{Title: "Nonexistent Song", Artist: "Nobody"},
		},
	}}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: tu.DiscardLogger(),
		Output: output,
		Library: func(plex shared.PlexConfig) (services.Library, error) {
			if !plex.Configured() {
				return nil, fmt.Errorf("%w: plex url and token are required", shared.ErrMissingCredentials)
			}
			return lib, nil
		},
		Sources: func(s string) (services.Source, error) {
			if s == services.QQName || strings.Contains(s, "y.qq.com") {
				return src, nil
			}
			return nil, fmt.Errorf("%w: %q", shared.ErrUnknownSource, s)
		},
	})

	return &testCLI{runner: runner, output: output, library: lib, source: src, configPath: configPath, dir: dir}
}

func (c *testCLI) run(args ...string) error {
	c.output.Reset()
	argv := append([]string{"plexlist", "--config", c.configPath}, args...)
	return newApp(c.runner).Run(context.Background(), argv)
}

const shareLink = "https://y.qq.com/n/ryqq/playlist/7364061065"

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.library == nil || runner.sources == nil {
				t.Error("expected default library and source resolvers")
			}
		})

		t.Run("default library requires credentials", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: tu.DiscardLogger()})

			_, err := runner.library(shared.PlexConfig{URL: "http://127.0.0.1:32400"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("default sources resolve share links", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: tu.DiscardLogger()})

			src, err := runner.sources("https://music.163.com/playlist?id=1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.Name() != services.NetEaseName {
				t.Errorf("expected netease source, got %s", src.Name())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, &bytes.Buffer{})})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("importTarget", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		runner.config.Plex.ImportMode = "update_existing"
		runner.config.Plex.PlaylistName = "Configured"

		target, err := runner.importTarget("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target.Mode != models.UpdateExisting || target.RequestedName != "Configured" {
			t.Errorf("expected configured defaults, got %+v", target)
		}

		target, _ = runner.importTarget("create_new", "Flag")
		if target.Mode != models.CreateNew || target.RequestedName != "Flag" {
			t.Errorf("expected flags to win, got %+v", target)
		}

		if _, err := runner.importTarget("merge", ""); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup plex saves only the given settings", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("setup", "plex", "--url", "http://plex.local:32400", "--mode", "UPDATE_EXISTING"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		saved, err := shared.LoadConfig(c.configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if saved.Plex.URL != "http://plex.local:32400" || saved.Plex.Token != "secret" || saved.Plex.ImportMode != "update_existing" {
			t.Errorf("unexpected saved settings %+v", saved.Plex)
		}
		if !strings.Contains(c.output.String(), "Plex settings saved") {
			t.Errorf("unexpected output %q", c.output.String())
		}
	})

	t.Run("setup plex --check pings the server", func(t *testing.T) {
		c := newTestCLI(t)
		c.library.PingErr = fmt.Errorf("%w: refused", shared.ErrConnection)

		err := c.run("setup", "plex", "--token", "other", "--check")
		if !errors.Is(err, shared.ErrConnection) {
			t.Errorf("expected ErrConnection, got %v", err)
		}
	})

	t.Run("setup plex requires a flag", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("setup", "plex"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("setup plex rejects an unknown mode", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("setup", "plex", "--mode", "merge"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("setup database creates the database", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(c.dir, "history.db"))
	})
}

func TestPlaylistExtract(t *testing.T) {
	t.Run("prints songs as JSON", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("playlist", "extract", "--url", shareLink, "--format", "json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got models.SourcePlaylist
		if err := json.Unmarshal(c.output.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, c.output.String())
		}
		if got.ID != "7364061065" || len(got.Songs) != 2 {
			t.Errorf("unexpected playlist %+v", got)
		}
	})

	t.Run("writes into a directory", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("playlist", "extract", "--url", "7364061065", "--source", "qq", "--format", "csv", "--output", c.dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content := tu.MustReadFile(t, filepath.Join(c.dir, "Favourites.csv"))
		if !strings.Contains(content, "Nonexistent Song,Nobody") {
			t.Errorf("unexpected CSV:\n%s", content)
		}
	})

	t.Run("unsupported link", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run("playlist", "extract", "--url", "https://open.spotify.com/playlist/1")
		if !errors.Is(err, shared.ErrUnknownSource) {
			t.Errorf("expected ErrUnknownSource, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run("playlist", "extract", "--url", shareLink, "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestPlexImport(t *testing.T) {
	t.Run("imports, reports and records history", func(t *testing.T) {
		c := newTestCLI(t)
		report := filepath.Join(c.dir, "report.md")

		if err := c.run("plex", "import", "--url", shareLink, "--mode", "update_existing", "--name", "Mix", "--report", report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := c.output.String()
		for _, want := range []string{"Import Complete!", "Playlist: Mix", "Matched: 1", "1. Nobody - Nonexistent Song", "Report saved to"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if !strings.Contains(tu.MustReadFile(t, report), "Nonexistent Song") {
			t.Error("report should list the unmatched song")
		}
		if pl, _ := c.library.FindPlaylist(context.Background(), "Mix"); pl == nil {
			t.Error("expected playlist Mix in the library")
		}

		if err := c.run("history", "list", "--json"); err != nil {
			t.Fatalf("history list: %v", err)
		}
		var jobs []jobView
		if err := json.Unmarshal(c.output.Bytes(), &jobs); err != nil {
			t.Fatalf("history output is not JSON: %v", err)
		}
		if len(jobs) != 1 || jobs[0].Status != models.JobCompleted || jobs[0].SongsMatched != 1 {
			t.Fatalf("unexpected history %+v", jobs)
		}

		if err := c.run("history", "show", "--id", jobs[0].ID); err != nil {
			t.Fatalf("history show: %v", err)
		}
		if !strings.Contains(c.output.String(), "Songs not found (1)") {
			t.Errorf("unexpected history detail:\n%s", c.output.String())
		}

		if err := c.run("history", "delete", "--id", jobs[0].ID); err != nil {
			t.Fatalf("history delete: %v", err)
		}
		if err := c.run("history", "show", "--id", jobs[0].ID); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound after delete, got %v", err)
		}
	})

	t.Run("update_existing defaults to the source title", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("plex", "import", "--url", shareLink, "--mode", "update_existing", "--no-history"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pl, _ := c.library.FindPlaylist(context.Background(), "Favourites"); pl == nil {
			t.Error("expected playlist named after the source title")
		}
	})

	t.Run("JSON output", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run("plex", "import", "--url", shareLink, "--json", "--no-history"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			JobID string `json:"job_id"`
			models.ImportResult
		}
		if err := json.Unmarshal(c.output.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, c.output.String())
		}
		if got.JobID == "" || !got.Success || !strings.HasPrefix(got.FinalPlaylistName, "From QQ Music - Favourites (") {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("connection failure", func(t *testing.T) {
		c := newTestCLI(t)
		c.library.PingErr = fmt.Errorf("%w: refused", shared.ErrConnection)

		err := c.run("plex", "import", "--url", shareLink, "--no-history")
		if !errors.Is(err, shared.ErrConnection) {
			t.Fatalf("expected ErrConnection, got %v", err)
		}
		if !strings.Contains(c.output.String(), "Import Failed") {
			t.Errorf("expected failure summary:\n%s", c.output.String())
		}
		if c.library.PlaylistCount() != 0 {
			t.Error("no playlist should be created")
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		c := newTestCLI(t)
		c.runner.config.Plex.Token = ""
		cfg := *c.runner.config
		if err := shared.SaveConfig(c.configPath, &cfg); err != nil {
			t.Fatal(err)
		}

		err := c.run("plex", "import", "--url", shareLink)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestPlexPlaylists(t *testing.T) {
	c := newTestCLI(t)
	c.library.AddPlaylist("Road Trip", tu.Track("1", "Yesterday", "The Beatles"))

	if err := c.run("plex", "playlists"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.output.String(), "Road Trip") {
		t.Errorf("expected playlist in output:\n%s", c.output.String())
	}
}

func TestHistoryListEmpty(t *testing.T) {
	c := newTestCLI(t)

	if err := c.run("history", "list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(c.output.String(), "No import runs recorded.") {
		t.Errorf("unexpected output %q", c.output.String())
	}
}
