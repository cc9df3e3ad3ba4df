package cmd

import (
	"flag"

	"github.com/etnz/famfin/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var currencies = predict.Set{"USD", "EUR", "GBP", "CAD", "JPY", "AUD", "CHF"}

// flagPredictors complete flag values, by flag name. Other flags expect a
// free value, except boolean ones.
var flagPredictors = map[string]complete.Predictor{
	"type":        predict.Set{"depository", "credit", "investment", "loan"},
	"c":           currencies,
	"currency":    currencies,
	"session-dir": predict.Dirs("*"),
	"session-db":  predict.Files("*.db"),
}

// predictors returns the completion of the flags of fs.
func predictors(fs *flag.FlagSet) map[string]complete.Predictor {
	res := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			res[f.Name] = predict.Nothing
			return
		}
		if p, ok := flagPredictors[f.Name]; ok {
			res[f.Name] = p
			return
		}
		res[f.Name] = predict.Something
	})
	return res
}

// Completion returns the completion tree of famfin: the global flags and
// every subcommand with its own flags.
func Completion(global *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictors(global),
	}
	for _, c := range Commands {
		fs := flag.NewFlagSet(c.Cmd.Name(), flag.ContinueOnError)
		c.Cmd.SetFlags(fs)
		root.Sub[c.Cmd.Name()] = &complete.Command{Flags: predictors(fs)}
	}
	if topics, err := docs.GetAllTopics(); err == nil {
		root.Sub["topic"].Args = predict.Set(append(topics, "readme", docs.All))
	}
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	return root
}
