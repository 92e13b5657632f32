// Command staticlint bundles the analyzers run against this module into a
// single multichecker binary: a set of go/analysis passes, ineffassign,
// nilerr, the module's own analyzers, and the staticcheck analyzers listed
// in config.json next to the binary.
//
// When config.json is missing, every SA (staticcheck) analyzer is enabled.
package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/thesiscomments/cmd/staticlint/envelopeonly"
	"github.com/patric-chuzhbe/thesiscomments/cmd/staticlint/noexit"
)

// Config is the name of the JSON configuration file that lists enabled staticcheck analyzers.
const Config = `config.json`

// ConfigData describes the structure of the configuration file.
// Staticcheck holds analyzer names such as "SA1000" or "SA4010".
type ConfigData struct {
	Staticcheck []string
}

func loadConfig() (ConfigData, error) {
	appfile, err := os.Executable()
	if err != nil {
		return ConfigData{}, err
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, fs.ErrNotExist) {
		return ConfigData{}, nil
	}
	if err != nil {
		return ConfigData{}, err
	}
	var cfg ConfigData
	if err = json.Unmarshal(data, &cfg); err != nil {
		return ConfigData{}, err
	}
	return cfg, nil
}

func selectStaticcheck(cfg ConfigData) []*analysis.Analyzer {
	checks := make(map[string]bool)
	for _, v := range cfg.Staticcheck {
		checks[v] = true
	}

	var selected []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		name := v.Analyzer.Name
		if checks[name] || (len(checks) == 0 && strings.HasPrefix(name, "SA")) {
			selected = append(selected, v.Analyzer)
		}
	}
	return selected
}

func analyzers(cfg ConfigData) []*analysis.Analyzer {
	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noexit.Analyzer,
		envelopeonly.Analyzer,
	}

	return append(myChecks, selectStaticcheck(cfg)...)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	multichecker.Main(analyzers(cfg)...)
}
