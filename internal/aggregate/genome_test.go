package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcinsights/bcinsights/internal/dataset"
)

const genomeCSV = "Case,Gene,Cancer Stage,ajcc_pathologic_n,ajcc_pathologic_m,ajcc_pathologic_t,ajcc_pathologic_stage,primary_diagnosis,Expression,Cluster\n" +
	"C1,BRCA1,Stage I,N0,M0,T1,Stage IA,Infiltrating duct carcinoma,1,0\n" +
	"C1,TP53,Stage I,N0,M0,T1,Stage IA,Infiltrating duct carcinoma,3,0\n" +
	"C2,BRCA1,Stage II,N1,M0,T2,Stage IIA,Lobular carcinoma,4,1\n" +
	"C3,BRCA1,Stage I,N1,M0,T2,Unknown,Lobular carcinoma,6,1\n" +
	"C4,TP53,Stage III,N2,M1,T3,Stage IIIA,Infiltrating duct carcinoma,8,2\n" +
	"C5,TP53,Stage II,N2,M0,T3,Stage IIB,Infiltrating duct carcinoma,10,2\n"

func TestExpressionHeatmap(t *testing.T) {
	tbl := mustTable(t, dataset.GenomeCluster, genomeCSV)
	h := ExpressionHeatmap(tbl.All())

	assert.Equal(t, []string{"0", "1", "2"}, h.Clusters)
	assert.Equal(t, []string{"BRCA1", "TP53"}, h.Genes)
	require.Len(t, h.Values, 3)

	require.NotNil(t, h.Values[0][0])
	assert.Equal(t, 1.0, *h.Values[0][0])
	assert.Equal(t, 3.0, *h.Values[0][1])
	assert.Equal(t, 5.0, *h.Values[1][0])
	assert.Nil(t, h.Values[1][1], "cluster 1 has no TP53 rows")
	assert.Nil(t, h.Values[2][0])
	assert.Equal(t, 9.0, *h.Values[2][1])

	// cluster 1 and 2 tie; the lexicographically smaller stage wins
	assert.Equal(t, []string{"Stage I", "Stage I", "Stage II"}, h.DominantStage)
	assert.False(t, h.Empty())
	assert.True(t, Heatmap{}.Empty())
}

func TestCaseMeansAndStageCounts(t *testing.T) {
	tbl := mustTable(t, dataset.GenomeCluster, genomeCSV)
	cases := CaseMeans(tbl.All())
	require.Len(t, cases, 5)
	assert.Equal(t, "C1", cases[0].Case)
	assert.Equal(t, 2.0, cases[0].Expression)

	counts := StageCounts(cases)
	assert.Equal(t, []StageCount{
		{Stage: "Stage I", Cases: 1},
		{Stage: "Stage II", Cases: 2},
		{Stage: "Stage III", Cases: 1},
	}, counts)
}

func TestDistribution(t *testing.T) {
	tbl := mustTable(t, dataset.GenomeCluster, genomeCSV)
	boxes := Distribution(CaseMeans(tbl.All()), ByPathologicN)
	require.Len(t, boxes, 3)

	assert.Equal(t, "N0", boxes[0].Category)
	assert.Equal(t, 1, boxes[0].N)

	n1 := boxes[1]
	assert.Equal(t, "N1", n1.Category)
	assert.Equal(t, 2, n1.N)
	assert.Equal(t, 4.0, n1.Min)
	assert.Equal(t, 6.0, n1.Max)
	assert.Equal(t, 5.0, n1.Mean)
	for _, b := range boxes {
		assert.LessOrEqual(t, b.Min, b.Q1)
		assert.LessOrEqual(t, b.Q1, b.Median)
		assert.LessOrEqual(t, b.Median, b.Q3)
		assert.LessOrEqual(t, b.Q3, b.Max)
	}

	_, ok := Summarise("none", nil)
	assert.False(t, ok)
}

func TestWrapDiagnosis(t *testing.T) {
	assert.Equal(t, "Infiltrating<br>duct<br>carcinoma", WrapDiagnosis("Infiltrating duct carcinoma"))
	assert.Equal(t, "Infiltrating<br>duct<br>and", WrapDiagnosis("Infiltrating duct and lobular carcinoma"))
	assert.Equal(t, "Carcinoma", WrapDiagnosis("Carcinoma"))
}

func TestModeBySkipsNulls(t *testing.T) {
	tbl := mustTable(t, dataset.GenomeCluster, "Cluster,Cancer Stage\n0,\n0,\n0,Stage II\n1,\n")
	modes := ModeBy(tbl.All(), dataset.ColCluster, dataset.ColCancerStage)
	assert.Equal(t, map[string]string{"0": "Stage II"}, modes)
}
