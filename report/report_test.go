package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/report"
	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/system"
)

var _ = Describe("Report", func() {
	var (
		config cache.Config
		r      report.Report
	)

	BeforeEach(func() {
		config = cache.DefaultConfig()

		s, err := system.NewSystem(config, [][]insts.Instruction{
			{insts.Write(0x100)},
			{insts.Read(0x100)},
		})
		Expect(err).NotTo(HaveOccurred())
		s.Run()

		r = report.New("app1", config, s.Stats())
	})

	It("should describe the parameters", func() {
		Expect(r.Parameters.BlockSize).To(Equal(32))
		Expect(r.Parameters.NumSets).To(Equal(64))
		Expect(r.Parameters.CacheSizeKB).To(BeNumerically("~", 4.0))
		Expect(r.Cores).To(HaveLen(system.NumCores))
		Expect(r.MaxExecutionTime).To(Equal(r.Cores[1].FinishCycle))
	})

	It("should write the text report", func() {
		var buf bytes.Buffer
		Expect(report.WriteText(&buf, r)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("Trace Prefix: app1\n"))
		Expect(out).To(ContainSubstring("Cache Size (KB per core): 4.00\n"))
		Expect(out).To(ContainSubstring("Core 3 Statistics:\n"))
		Expect(out).To(ContainSubstring("Cache Miss Rate: 100.00%\n"))
		Expect(out).To(ContainSubstring("Total Bus Transactions: 2\n"))
		Expect(out).To(MatchRegexp(`Maximum Execution Time \(cycles\): \d+`))
	})

	It("should write one CSV row per core", func() {
		var buf bytes.Buffer
		Expect(report.WriteCSV(&buf, r)).To(Succeed())

		rows, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(system.NumCores + 1))
		Expect(rows[0][0]).To(Equal("core"))
		Expect(rows[1][11]).To(Equal("1"))
	})

	It("should write JSON", func() {
		var buf bytes.Buffer
		Expect(report.WriteJSON(&buf, r)).To(Succeed())

		var decoded report.Report
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded).To(Equal(r))
	})
})
