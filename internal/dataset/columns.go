package dataset

// Dataset names as stored on disk (without the .csv suffix).
const (
	PatientsByYearAndAge = "patients by year and age"
	LateralityBySite     = "laterality vs tumor site alluvial"
	AgeBySiteRadar       = "age vs site radar data"
	GenomeCluster        = "genome_cluster"
	SurvivalCohort       = "survival df"
)

// Column names shared across datasets.
const (
	ColYear            = "year_of_diagnosis"
	ColAgeGroup        = "age_group"
	ColAge             = "Age"
	ColLaterality      = "laterality"
	ColTumorSite       = "tumor_site"
	ColCount           = "count"
	ColCase            = "Case"
	ColGene            = "Gene"
	ColCancerStage     = "Cancer Stage"
	ColPathologicN     = "ajcc_pathologic_n"
	ColPathologicM     = "ajcc_pathologic_m"
	ColPathologicT     = "ajcc_pathologic_t"
	ColPathologicStage = "ajcc_pathologic_stage"
	ColDiagnosis       = "primary_diagnosis"
	ColExpression      = "Expression"
	ColCluster         = "Cluster"
	ColAgeAtDiagnosis  = "age_at_diagnosis"
	ColSurvivalMonths  = "survival_months"
	ColVitalStatus     = "vital_status"
	ColRace            = "race"
	ColMaritalStatus   = "marital_status_at_diagnosis"
	ColStage           = "adjusted_ajcc_6th_stage"
	ColTumorSize       = "adjusted_ajcc_6th_t"
	ColERStatus        = "er_status"
	ColPRStatus        = "pr_status"
)

// TumorSites are the anatomical sites used as radar columns and filter options.
var TumorSites = []string{
	"Axillary tail",
	"Breast, NOS",
	"Central portion",
	"Lower-inner quadrant",
	"Lower-outer quadrant",
	"Nipple",
	"Overlapping lesion",
	"Upper-inner quadrant",
	"Upper-outer quadrant",
}

// AgeGroups are the diagnosis age bands in display order.
var AgeGroups = []string{
	"5-14 yrs",
	"15-24 yrs",
	"25-34 yrs",
	"35-44 yrs",
	"45-54 yrs",
	"55-64 yrs",
	"65-74 yrs",
	"75-84 yrs",
}

// typing describes how raw CSV cells of one dataset are coerced.
type typing struct {
	kinds    map[string]Kind
	fallback Kind
}

var registry = map[string]typing{
	PatientsByYearAndAge: {kinds: map[string]Kind{
		ColYear:     KindInt,
		ColAgeGroup: KindString,
		ColAge:      KindInt,
	}},
	LateralityBySite: {kinds: map[string]Kind{
		ColLaterality: KindString,
		ColTumorSite:  KindString,
		ColCount:      KindInt,
	}},
	// wide table: every site column holds a patient count
	AgeBySiteRadar: {
		kinds:    map[string]Kind{ColAgeGroup: KindString},
		fallback: KindInt,
	},
	GenomeCluster: {kinds: map[string]Kind{
		ColExpression:     KindFloat,
		ColCluster:        KindInt,
		ColAgeAtDiagnosis: KindFloat,
	}},
	SurvivalCohort: {kinds: map[string]Kind{
		ColSurvivalMonths: KindInt,
		ColYear:           KindInt,
	}},
}

// Known reports whether name is a registered dataset.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists the registered datasets.
func Names() []string {
	return []string{PatientsByYearAndAge, LateralityBySite, AgeBySiteRadar, GenomeCluster, SurvivalCohort}
}

func kindFor(dataset, column string) Kind {
	t, ok := registry[dataset]
	if !ok {
		return KindString
	}
	if k, ok := t.kinds[column]; ok {
		return k
	}
	return t.fallback
}

// Stages are the adjusted AJCC 6th edition stage groups offered as filters.
var Stages = []string{"I", "II", "III", "IV"}
