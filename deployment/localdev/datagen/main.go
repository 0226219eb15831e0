// Command datagen writes a synthetic copy of the five dashboard datasets so
// the service can run locally without registry extracts.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/utils"
)

var (
	lateralities   = []string{"Left", "Right", "Bilateral", "Unknown"}
	races          = []string{"White", "Black", "Asian or Pacific Islander", "American Indian/Alaska Native", "Unknown"}
	maritalStatus  = []string{"Married", "Single", "Divorced", "Widowed", "Separated", "Unknown"}
	tumorSizes     = []string{"T1", "T2", "T3", "T4", "Unknown"}
	receptorStatus = []string{"Positive", "Negative", "Borderline", "Unknown"}
	genes          = []string{"BRCA1", "BRCA2", "TP53", "PIK3CA", "ERBB2", "ESR1", "PTEN", "CDH1"}
	pathologicN    = []string{"N0", "N1", "N1a", "N2", "N3", "Unknown"}
	pathologicM    = []string{"M0", "M1", "Unknown"}
	pathologicT    = []string{"T1", "T1c", "T2", "T3", "T4", "Unknown"}
	pathStages     = []string{"Stage I", "Stage IA", "Stage IIA", "Stage IIB", "Stage IIIA", "Stage IIIC", "Stage IV", "Unknown"}
	diagnoses      = []string{"Infiltrating duct carcinoma, NOS", "Lobular carcinoma, NOS", "Infiltrating duct and lobular carcinoma", "Mucinous adenocarcinoma", "Metaplastic carcinoma, NOS", "Not Reported"}
)

func main() {
	var (
		out      string
		seed     int64
		patients int
		cases    int
	)
	flag.StringVar(&out, "out", "data", "Directory to write the CSV files into")
	flag.Int64Var(&seed, "seed", 1, "Random seed")
	flag.IntVar(&patients, "patients", 5000, "Rows in the survival cohort")
	flag.IntVar(&cases, "cases", 300, "Cases in the genome table")
	flag.Parse()

	logger := utils.NewLogger("info", false)
	if err := os.MkdirAll(out, 0o755); err != nil {
		logger.Error("create output dir", slog.Any("error", err))
		os.Exit(1)
	}

	g := generator{rng: rand.New(rand.NewSource(seed))}
	tables := map[string][][]string{
		dataset.PatientsByYearAndAge: g.patientsByYear(),
		dataset.LateralityBySite:     g.laterality(),
		dataset.AgeBySiteRadar:       g.radar(),
		dataset.GenomeCluster:        g.genome(cases),
		dataset.SurvivalCohort:       g.survival(patients),
	}
	for _, name := range dataset.Names() {
		path := filepath.Join(out, name+".csv")
		if err := writeCSV(path, tables[name]); err != nil {
			logger.Error("write dataset", slog.String("path", path), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("dataset written", slog.String("path", path), slog.Int("rows", len(tables[name])-1))
	}
}

type generator struct {
	rng *rand.Rand
}

func (g generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

func (g generator) patientsByYear() [][]string {
	rows := [][]string{{dataset.ColYear, dataset.ColAgeGroup, dataset.ColAge}}
	for year := 1975; year <= 2021; year++ {
		for i, group := range dataset.AgeGroups {
			base := float64(i*i*40) + float64(year-1975)*float64(i)*3
			count := int(math.Max(0, base+g.rng.NormFloat64()*base*0.05))
			rows = append(rows, []string{strconv.Itoa(year), group, strconv.Itoa(count)})
		}
	}
	return rows
}

func (g generator) laterality() [][]string {
	rows := [][]string{{dataset.ColLaterality, dataset.ColTumorSite, dataset.ColCount}}
	for _, side := range lateralities {
		for _, site := range dataset.TumorSites {
			rows = append(rows, []string{side, site, strconv.Itoa(g.rng.Intn(5000))})
		}
	}
	return rows
}

func (g generator) radar() [][]string {
	header := append([]string{dataset.ColAgeGroup}, dataset.TumorSites...)
	rows := [][]string{header}
	for i, group := range dataset.AgeGroups {
		row := []string{group}
		for range dataset.TumorSites {
			row = append(row, strconv.Itoa(g.rng.Intn(200*(i+1))))
		}
		rows = append(rows, row)
	}
	return rows
}

func (g generator) genome(cases int) [][]string {
	rows := [][]string{{
		dataset.ColCase, dataset.ColGene, dataset.ColCancerStage,
		dataset.ColPathologicN, dataset.ColPathologicM, dataset.ColPathologicT,
		dataset.ColPathologicStage, dataset.ColDiagnosis, dataset.ColAgeAtDiagnosis,
		dataset.ColExpression, dataset.ColCluster,
	}}
	for c := 0; c < cases; c++ {
		id := fmt.Sprintf("TCGA-%02d-%04d", c%90, c)
		stage := g.pick(dataset.Stages)
		n, m, t := g.pick(pathologicN), g.pick(pathologicM), g.pick(pathologicT)
		pathStage, diagnosis := g.pick(pathStages), g.pick(diagnoses)
		age := strconv.FormatFloat(30+g.rng.Float64()*55, 'f', 1, 64)
		cluster := g.rng.Intn(4)
		for gi, gene := range genes {
			expr := float64(cluster+gi%3) + g.rng.NormFloat64()
			rows = append(rows, []string{
				id, gene, "Stage " + stage, n, m, t, pathStage, diagnosis, age,
				strconv.FormatFloat(expr, 'f', 4, 64), strconv.Itoa(cluster),
			})
		}
	}
	return rows
}

func (g generator) survival(patients int) [][]string {
	rows := [][]string{{
		dataset.ColSurvivalMonths, dataset.ColVitalStatus, dataset.ColRace, dataset.ColMaritalStatus,
		dataset.ColStage, dataset.ColLaterality, dataset.ColTumorSite, dataset.ColTumorSize,
		dataset.ColERStatus, dataset.ColPRStatus, dataset.ColYear, dataset.ColAgeGroup,
	}}
	for i := 0; i < patients; i++ {
		stageIdx := g.rng.Intn(len(dataset.Stages))
		year := 1975 + g.rng.Intn(47)
		followUp := (2021 - year) * 12
		// later stages carry a shorter expected survival
		lifetime := g.rng.ExpFloat64() * 240 / float64(stageIdx+1)
		status, months := "Dead", int(lifetime)
		if months >= followUp {
			status, months = "Alive", followUp
		}
		rows = append(rows, []string{
			strconv.Itoa(months), status, g.pick(races), g.pick(maritalStatus),
			dataset.Stages[stageIdx], g.pick(lateralities), g.pick(dataset.TumorSites), g.pick(tumorSizes),
			g.pick(receptorStatus), g.pick(receptorStatus), strconv.Itoa(year), g.pick(dataset.AgeGroups),
		})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
