package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mchmarny/admitguide/pkg/advisor"
	"github.com/mchmarny/admitguide/pkg/catalog"
	"github.com/mchmarny/admitguide/pkg/index"
	"github.com/mchmarny/admitguide/pkg/net"
	"github.com/urfave/cli/v3"
)

const noMatchesMessage = "no matching programs"

var (
	setFlag = &cli.StringSliceFlag{
		Name:    "set",
		Aliases: []string{"s"},
		Usage:   "Field value as name=value (repeatable)",
	}

	queryFlag = &cli.StringFlag{
		Name:     "query",
		Aliases:  []string{"q"},
		Usage:    "Free-text description of academic interests",
		Required: true,
	}

	kFlag = &cli.IntFlag{
		Name:  "k",
		Usage: "Number of programs to return (default: search.default_k)",
	}

	universityFlag = &cli.StringFlag{
		Name:     "university",
		Aliases:  []string{"u"},
		Usage:    "University name as listed in the catalog",
		Required: true,
	}

	termsFlag = &cli.BoolFlag{
		Name:  "terms",
		Usage: "Include the index vocabulary in the output",
	}

	predictCmd = &cli.Command{
		Name:  "predict",
		Usage: "Predict admission probability for an applicant profile",
		UsageText: `admitguide predict --set gre=320 --set toefl=104 --set ielts=7.5 --set cgpa=3.6 \
     --set acceptance_rate=30 --set rating=4 --set location=California`,
		HideHelpCommand: true,
		Action:          cmdPredict,
		Flags:           []cli.Flag{setFlag},
	}

	searchCmd = &cli.Command{
		Name:            "search",
		Usage:           "Rank catalog programs against a description of interests",
		UsageText:       `admitguide search --query "machine learning and statistics" --k 3`,
		HideHelpCommand: true,
		Action:          cmdSearch,
		Flags:           []cli.Flag{queryFlag, kFlag},
	}

	evaluateCmd = &cli.Command{
		Name:  "evaluate",
		Usage: "Evaluate applicant scores against one university",
		UsageText: `admitguide evaluate --university "Pacific Coast University" \
     --set gre=320 --set toefl=104 --set ielts=7.5 --set cgpa=3.6`,
		HideHelpCommand: true,
		Action:          cmdEvaluate,
		Flags:           []cli.Flag{universityFlag, setFlag},
	}

	indexCmd = &cli.Command{
		Name:            "index",
		Usage:           "Build the catalog index and print its stats",
		HideHelpCommand: true,
		Action:          cmdIndex,
		Flags:           []cli.Flag{termsFlag},
	}
)

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	values, err := parseSettings(cmd.StringSlice(setFlag.Name))
	if err != nil {
		return err
	}

	a, err := newAdvisor(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Encoder().ParseProfile(values)
	if err != nil {
		return err
	}

	res, err := a.Predict(p)
	if err != nil {
		return fmt.Errorf("predicting: %w", err)
	}
	return encode(cmd, res)
}

type searchResponse struct {
	index.Result `yaml:",inline"`
	Message      string `json:"message,omitempty" yaml:"message,omitempty"`
}

func cmdSearch(ctx context.Context, cmd *cli.Command) error {
	a, err := newAdvisor(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	k := cmd.Int(kFlag.Name)
	if !cmd.IsSet(kFlag.Name) {
		k = a.DefaultK()
	}

	res, err := runSearch(a, cmd.String(queryFlag.Name), k)
	if err != nil {
		return err
	}
	return encode(cmd, res)
}

// runSearch turns an empty query into an empty result with a message.
func runSearch(a *advisor.Advisor, query string, k int) (*searchResponse, error) {
	res, err := a.Search(query, k)
	if err != nil {
		var eq *index.EmptyQueryError
		if errors.As(err, &eq) {
			return &searchResponse{
				Result:  index.Result{Query: query, Matches: []index.Match{}},
				Message: noMatchesMessage,
			}, nil
		}
		return nil, err
	}
	if len(res.Matches) == 0 {
		return &searchResponse{Result: res, Message: noMatchesMessage}, nil
	}
	return &searchResponse{Result: res}, nil
}

func cmdEvaluate(ctx context.Context, cmd *cli.Command) error {
	values, err := parseSettings(cmd.StringSlice(setFlag.Name))
	if err != nil {
		return err
	}

	scores := make(map[string]float64, len(values))
	for k, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid score %s=%q: not a number", k, v)
		}
		scores[k] = f
	}

	a, err := newAdvisor(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ev, err := a.Evaluate(advisor.EvaluationRequest{
		University: cmd.String(universityFlag.Name),
		Scores:     scores,
	})
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}
	return encode(cmd, ev)
}

type indexResponse struct {
	index.Stats `yaml:",inline"`
	Terms       []string `json:"terms,omitempty" yaml:"terms,omitempty"`
}

// cmdIndex builds only the catalog side, so it works without a model.
func cmdIndex(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd).Config

	path, err := net.Resolve(ctx, cfg.Catalog.Path, cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("fetching catalog: %w", err)
	}

	c, err := catalog.Load(path, catalog.Options{Sheet: cfg.Catalog.Sheet, Columns: cfg.Catalog.Columns})
	if err != nil {
		return err
	}

	ix, err := index.Build(c.Entries(), index.NewTokenizer(cfg.Text))
	if err != nil {
		return err
	}

	res := indexResponse{Stats: ix.Stats()}
	if cmd.Bool(termsFlag.Name) {
		res.Terms = ix.Vocabulary()
	}
	return encode(cmd, res)
}
