package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/server"
	"github.com/spf13/cobra"
)

func newExecCmd(c *cli) *cobra.Command {
	var sql string
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "run a semicolon separated list of statements",
		Long: `
Run the statements given with -e, or read from standard input when -e is
not set. Execution stops at the first failing statement.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sql == "" {
				in, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return dberr.IO(err, "read statements")
				}
				sql = string(in)
			}
			return c.withSession(func(s *server.Session) error {
				results, err := s.ExecuteBatch(sql)
				for _, res := range results {
					printResult(cmd.OutOrStdout(), res)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&sql, "execute", "e", "", "statements to run")
	return cmd
}

func newExplainCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <statement>",
		Short: "print the physical plan of a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(func(s *server.Session) error {
				res, err := s.Execute("EXPLAIN " + args[0])
				if err != nil {
					return err
				}
				for _, row := range res.Rows {
					fmt.Fprintln(cmd.OutOrStdout(), row[0].String())
				}
				return nil
			})
		},
	}
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <table> [column...]",
		Short: "collect column statistics of a table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql := "ANALYZE " + args[0]
			if len(args) > 1 {
				sql += "(" + strings.Join(args[1:], ", ") + ")"
			}
			return c.withSession(func(s *server.Session) error {
				res, err := s.Execute(sql)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newShellCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "open an interactive SQL shell",
		Long: `
Open a SQL shell. Statements end with a semicolon and may span lines.
A failing statement is reported and the shell continues. EXIT leaves.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(func(s *server.Session) error {
				return runShell(s, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func runShell(s *server.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var pending strings.Builder
	prompt := func() {
		if pending.Len() == 0 {
			fmt.Fprint(out, "plandb> ")
		} else {
			fmt.Fprint(out, "     -> ")
		}
	}

	prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" && pending.Len() == 0 {
			prompt()
			continue
		}
		pending.WriteString(line)
		pending.WriteByte('\n')
		if !strings.HasSuffix(line, ";") {
			prompt()
			continue
		}

		text := pending.String()
		pending.Reset()
		if exit := runShellInput(s, text, out); exit {
			return nil
		}
		prompt()
	}
	if err := scanner.Err(); err != nil {
		return dberr.IO(err, "read input")
	}
	fmt.Fprintln(out)
	return nil
}

// runShellInput runs the statements of text and reports whether one of
// them asked to leave the shell.
func runShellInput(s *server.Session, text string, out io.Writer) bool {
	stmts, err := parse.ParseAll(text)
	if err != nil {
		printError(out, err)
		return false
	}
	for _, stmt := range stmts {
		if stmt.Kind() == parse.KindExit {
			return true
		}
		res, err := s.Run(stmt)
		if err != nil {
			printError(out, err)
			continue
		}
		printResult(out, res)
	}
	return false
}
