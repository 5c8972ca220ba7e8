package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/researchcrew-cli/internal/ai"
	"github.com/KaramelBytes/researchcrew-cli/internal/archive"
	"github.com/KaramelBytes/researchcrew-cli/internal/crew"
	"github.com/KaramelBytes/researchcrew-cli/internal/logging"
	"github.com/KaramelBytes/researchcrew-cli/internal/report"
	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

var (
	resBackend       string
	resModel         string
	resOutputDir     string
	resContextFiles  []string
	resContextTokens int
	resMaxIterations int
	resMaxTokens     int
	resTemp          float64
	resBudgetLimit   float64
	resTimeoutSec    int
	resDryRun        bool
	resQuiet         bool
	resJSON          bool
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Research a topic and write a markdown + HTML report",
	Long: `Runs the Senior Data Researcher and the Reporting Analyst against the selected
backend, then saves <topic>_<timestamp>.md and .html into the reports directory.
Each run is archived under <reports>/runs/<id>/ with the raw task outputs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.TrimSpace(strings.Join(args, " "))
		if topic == "" {
			return fmt.Errorf("topic cannot be empty")
		}
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		backend, err := selectBackend(c, resBackend)
		if err != nil {
			return err
		}
		modelName, err := selectModel(c, backend, resModel)
		if err != nil {
			return err
		}

		maxTokens := resMaxTokens
		if maxTokens <= 0 {
			maxTokens = c.MaxTokens
		}
		temp := resTemp
		if !cmd.Flags().Changed("temp") {
			temp = c.Temperature
		}
		maxIter := resMaxIterations
		if maxIter <= 0 {
			maxIter = c.MaxIterations
		}
		outDir, err := reportsDir(c, resOutputDir)
		if err != nil {
			return err
		}

		notes, err := loadNotes(resContextFiles)
		if err != nil {
			return err
		}

		// Prompt sizing uses agents without models; nothing is sent yet.
		preview := crew.New(crew.NewResearcher(nil), crew.NewAnalyst(nil), crew.Options{Notes: notes}).Tasks(topic)
		researchTokens := utils.CountTokens(preview[0].Agent.SystemPrompt()) + utils.CountTokens(preview[0].Prompt())
		reportTokens := utils.CountTokens(preview[1].Agent.SystemPrompt()) + utils.CountTokens(preview[1].Prompt())

		contextTokens := resContextTokens
		var estCost float64
		if mi, ok := ai.LookupModel(modelName); ok {
			if contextTokens <= 0 {
				contextTokens = contextBudget(mi.ContextTokens, maxTokens, reportTokens)
			}
			if researchTokens+maxTokens > mi.ContextTokens && !resQuiet {
				fmt.Printf("⚠ Research prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens).\n",
					researchTokens, maxTokens, mi.Name, mi.ContextTokens)
			}
			// Upper bound: both tasks use the full completion budget and the
			// analyst sees the whole research output.
			if cost, ok := ai.EstimateCostUSD(modelName, researchTokens+reportTokens+maxTokens, 2*maxTokens); ok {
				estCost = cost
			}
		}

		if !resQuiet {
			fmt.Printf("Tokens: research≈%d, report≈%d (+ research output), notes=%d\n", researchTokens, reportTokens, len(notes))
			if estCost > 0 {
				fmt.Printf("Estimated max cost: ~$%.4f\n", estCost)
			}
			if resDryRun && len(notes) > 0 {
				byNote := utils.TokenBreakdown(lo.SliceToMap(notes, func(n crew.Note) (string, string) { return n.Name, n.Content }))
				for _, n := range notes {
					fmt.Printf("  context %s: %d tokens\n", n.Name, byNote[n.Name])
				}
			}
		}
		if err := enforceBudget(estCost, resBudgetLimit); err != nil {
			return err
		}

		if resDryRun {
			if !resQuiet {
				fmt.Printf("\n--dry-run: no API call will be made (backend=%s model=%s). Research prompt below --\n", backend, modelName)
			}
			fmt.Println(preview[0].Prompt())
			return nil
		}

		timeoutSec := resTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = 1800
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()

		rc := runtimeConfig(c, backend)
		if err := ai.CheckAvailability(ctx, backend, ai.AvailabilityOptions{APIKey: rc.APIKey, Host: rc.Host}); err != nil {
			return explainError(err, backend, modelName)
		}

		cm, err := ai.NewChatModel(ctx, backend, ai.ChatModelOptions{
			Model:       modelName,
			Temperature: temp,
			MaxTokens:   maxTokens,
			Runtime:     rc,
		})
		if err != nil {
			return err
		}

		log := logging.GetLogger("cmd")
		log.Info().Str("topic", topic).Str("backend", backend).Str("model", modelName).Msg("starting research")

		run := archive.NewRun(outDir, topic, backend, modelName)
		for _, n := range notes {
			run.ContextDocs = append(run.ContextDocs, n.Name)
		}
		if err := run.Save(); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}

		rcrew := crew.NewWithModel(cm, crew.Options{
			MaxIterations: maxIter,
			ContextTokens: contextTokens,
			Notes:         notes,
			OnTaskStart: func(t *crew.Task) {
				if !resQuiet {
					fmt.Printf("⚙ %s: %s ...\n", t.Agent.Role, t.Name)
				}
			},
			OnTaskEnd: func(t *crew.Task, err error) {
				if resQuiet {
					return
				}
				if err != nil {
					fmt.Printf("✗ %s failed\n", t.Name)
					return
				}
				fmt.Printf("✓ %s done (%d attempt(s), %s)\n", t.Name, t.Output.Attempts, t.Output.Duration.Round(time.Millisecond))
			},
		})

		out, err := rcrew.Kickoff(ctx, topic)
		if err != nil {
			return failRun(run, explainError(err, backend, modelName))
		}

		for _, to := range out.TasksOutput {
			file, werr := run.WriteOutput(to.Task, to.Raw)
			if werr != nil {
				log.Warn().Err(werr).Str("task", to.Task).Msg("task output not archived")
			}
			run.Tasks = append(run.Tasks, archive.Task{
				Name:             to.Task,
				Agent:            to.Agent,
				PromptTokens:     to.PromptTokens,
				CompletionTokens: to.CompletionTokens,
				DurationMs:       to.Duration.Milliseconds(),
				Attempts:         to.Attempts,
				OutputFile:       file,
			})
		}
		run.PromptTokens = out.PromptTokens()
		run.CompletionTokens = out.CompletionTokens()
		if cost, ok := ai.EstimateCostUSD(modelName, run.PromptTokens, run.CompletionTokens); ok {
			run.EstimatedCostUSD = cost
		}

		res, err := report.Save(out.Raw, topic, outDir, time.Now())
		if res == nil {
			return failRun(run, err)
		}
		if err != nil && !resQuiet {
			fmt.Printf("⚠ HTML rendering failed, markdown kept: %v\n", err)
		}
		run.MarkdownPath = res.MarkdownPath
		run.HTMLPath = res.HTMLPath
		run.Finish(nil)
		if err := run.Save(); err != nil {
			log.Warn().Err(err).Msg("run manifest not updated")
		}
		log.Info().Str("run", run.ID).Str("markdown", res.MarkdownPath).Str("html", res.HTMLPath).Msg("research finished")

		return writeSummary(cmd.OutOrStdout(), summarize(run), resJSON)
	},
}

// failRun records err on the run manifest and returns it.
func failRun(run *archive.Run, err error) error {
	run.Finish(err)
	if serr := run.Save(); serr != nil {
		l := logging.GetLogger("cmd")
		l.Warn().Err(serr).Str("run", run.ID).Msg("run manifest not updated")
	}
	return err
}

// contextBudget is how many tokens of research output fit into the analyst
// prompt. Zero means no truncation.
func contextBudget(window, maxTokens, reportPrompt int) int {
	if window <= 0 {
		return 0
	}
	avail := window - maxTokens - reportPrompt
	if avail <= 0 {
		return window / 4
	}
	return avail
}

func init() {
	rootCmd.AddCommand(researchCmd)
	researchCmd.Flags().StringVarP(&resBackend, "backend", "b", "", "LLM backend: openai|openrouter|ollama (default from config)")
	researchCmd.Flags().StringVarP(&resModel, "model", "m", "", "override model (default from config for the backend)")
	researchCmd.Flags().StringVarP(&resOutputDir, "output-dir", "o", "", "directory for the reports (default from config: reports)")
	researchCmd.Flags().StringSliceVarP(&resContextFiles, "context", "c", nil, "reference notes (.txt, .md, .html) for the researcher; repeatable")
	researchCmd.Flags().IntVar(&resContextTokens, "context-tokens", 0, "cap research output passed to the analyst (default: fit the model window)")
	researchCmd.Flags().IntVar(&resMaxIterations, "max-iterations", 0, "attempts per task when the model returns nothing (default from config)")
	researchCmd.Flags().IntVar(&resMaxTokens, "max-tokens", 0, "max tokens per response (default from config)")
	researchCmd.Flags().Float64Var(&resTemp, "temp", 0, "sampling temperature (default from config)")
	researchCmd.Flags().Float64Var(&resBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	researchCmd.Flags().IntVar(&resTimeoutSec, "timeout-sec", 1800, "overall timeout in seconds")
	researchCmd.Flags().BoolVar(&resDryRun, "dry-run", false, "print the research prompt and estimates without calling the backend")
	researchCmd.Flags().BoolVarP(&resQuiet, "quiet", "q", false, "suppress progress output")
	researchCmd.Flags().BoolVar(&resJSON, "json", false, "print the run summary as JSON")
}
