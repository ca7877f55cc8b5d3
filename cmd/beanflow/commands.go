/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/builtin/journal"
	"github.com/rulego/beanflow/builtin/resource"
	"github.com/rulego/beanflow/builtin/transaction"
	"github.com/rulego/beanflow/engine"
	"github.com/rulego/beanflow/schedule"
	"github.com/rulego/beanflow/utils/fs"
	"github.com/rulego/beanflow/utils/json"
	"github.com/urfave/cli/v2"
)

var dirFlag = &cli.StringFlag{
	Name:    "dir",
	Aliases: []string{"d"},
	Usage:   "Folder holding the flow definitions (*.json, *.yaml, *.yml)",
	Value:   ".",
	EnvVars: []string{"BEANFLOW_DIR"},
}

var flowFlag = &cli.StringFlag{
	Name:     "flow",
	Aliases:  []string{"f"},
	Usage:    "Name or alias of the flow",
	Required: true,
}

var inputFlag = &cli.StringFlag{
	Name:    "input",
	Aliases: []string{"i"},
	Usage:   "Flow input as JSON",
}

// GlobalFlags configure the services available to flow resources.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "sql-driver",
		Usage: "SQL driver of the sql resource service (mysql, postgres)",
		Value: "mysql",
	},
	&cli.StringSliceFlag{
		Name:    "sql",
		Usage:   "Data source of the sql resource service as key=dsn",
		EnvVars: []string{"BEANFLOW_SQL"},
	},
	&cli.StringFlag{
		Name:  "journal",
		Usage: "Record step events to this bbolt file",
	},
	&cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log step events",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "beanflow",
		Usage:   "Run bean flows",
		Version: Version,
		Flags:   GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			listCommand,
			validateCommand,
			scheduleCommand,
		},
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Invoke a flow once and print its result as JSON",
	Flags: []cli.Flag{dirFlag, flowFlag, inputFlag},
	Action: func(c *cli.Context) error {
		input, err := parseInput(c.String("input"))
		if err != nil {
			return err
		}
		f, closeFn, err := newFactory(c)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := f.Load(c.String("dir")); err != nil {
			return err
		}
		result, err := f.Invoke(c.Context, c.String("flow"), input)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(result)
		if err != nil {
			return fmt.Errorf("result of %s: %w", c.String("flow"), err)
		}
		_, err = fmt.Fprintln(c.App.Writer, string(out))
		return err
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the flows of a folder",
	Flags: []cli.Flag{dirFlag},
	Action: func(c *cli.Context) error {
		f, closeFn, err := newFactory(c)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := f.Load(c.String("dir")); err != nil {
			return err
		}
		for _, name := range f.Names() {
			flow, _ := f.Get(name)
			line := name
			if aliases := flow.Definition().Aliases; len(aliases) > 0 {
				line += " (" + strings.Join(aliases, ", ") + ")"
			}
			fmt.Fprintln(c.App.Writer, line)
		}
		return nil
	},
}

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Check that every flow file of a folder builds",
	Flags: []cli.Flag{dirFlag},
	Action: func(c *cli.Context) error {
		paths, err := fs.FilePaths(c.String("dir"), engine.FlowFilePatterns)
		if err != nil {
			return err
		}
		f, closeFn, err := newFactory(c)
		if err != nil {
			return err
		}
		defer closeFn()
		invalid := 0
		for _, path := range paths {
			data, err := fs.LoadFile(path)
			if err == nil {
				_, err = f.New(data, engine.ParserFor(path))
			}
			if err != nil {
				invalid++
				fmt.Fprintf(c.App.Writer, "FAIL %s: %v\n", path, err)
			} else {
				fmt.Fprintf(c.App.Writer, "ok   %s\n", path)
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d flow files are invalid", invalid, len(paths))
		}
		return nil
	},
}

var scheduleCommand = &cli.Command{
	Name:  "schedule",
	Usage: "Invoke a flow on a cron schedule until interrupted",
	Flags: []cli.Flag{dirFlag, flowFlag, inputFlag,
		&cli.StringFlag{
			Name:     "cron",
			Aliases:  []string{"c"},
			Usage:    "Cron spec with a leading seconds field",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		input, err := parseInput(c.String("input"))
		if err != nil {
			return err
		}
		f, closeFn, err := newFactory(c)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := f.Load(c.String("dir")); err != nil {
			return err
		}
		logger := f.Env().Logger()
		s := schedule.New(f, logger)
		s.OnResult = func(job schedule.Job, result any, err error) {
			if err == nil {
				logger.Printf("job %s flow %s: %v", job.Id, job.Flow, result)
			}
		}
		if _, err := s.Add(c.String("cron"), c.String("flow"), input); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		s.Start()
		<-ctx.Done()
		s.Stop(context.Background())
		return nil
	},
}

func parseInput(text string) (any, error) {
	if text == "" {
		return nil, nil
	}
	var input any
	if err := json.Unmarshal([]byte(text), &input); err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}
	return input, nil
}

func parseDataSources(values []string) (map[string]string, error) {
	sources := make(map[string]string, len(values))
	for _, v := range values {
		key, dsn, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("data source %q is not key=dsn", v)
		}
		sources[key] = dsn
	}
	return sources, nil
}

// newFactory creates a factory with the store, sql and transaction services
// configured by the global flags. closeFn releases them.
func newFactory(c *cli.Context) (*engine.Factory, func(), error) {
	logger := log.New(c.App.ErrWriter, "[beanflow] ", log.LstdFlags)
	sources, err := parseDataSources(c.StringSlice("sql"))
	if err != nil {
		return nil, nil, err
	}
	sqlFactory := resource.NewSQLFactory(c.String("sql-driver"), sources)
	opts := []types.Option{
		types.WithLogger(logger),
		types.WithDefaultPool(),
		types.WithTransactionManager(transaction.NewManager()),
		types.WithResourceFactory("store", resource.NewStoreFactory()),
		types.WithResourceFactory("sql", sqlFactory),
	}
	var journals journal.Multi
	if c.Bool("verbose") {
		journals = append(journals, journal.NewLogJournal(logger))
	}
	var bolt *journal.BoltJournal
	if path := c.String("journal"); path != "" {
		bolt = journal.NewBoltJournal(path, logger)
		if err := bolt.Open(); err != nil {
			return nil, nil, err
		}
		journals = append(journals, bolt)
	}
	if len(journals) > 0 {
		opts = append(opts, types.WithJournal(journals))
	}
	f := engine.NewFactory(types.NewConfig(opts...))
	closeFn := func() {
		f.Stop()
		if err := sqlFactory.Close(); err != nil {
			logger.Printf("close sql: %v", err)
		}
		if bolt != nil {
			_ = bolt.Close()
		}
	}
	return f, closeFn, nil
}
