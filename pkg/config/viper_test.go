package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(config.FromViper(v)).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := "[publisher]\nprovider = \"kafka\"\nbrokers = [\"k:9092\"]\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Publisher.Provider).To(Equal("kafka"))
		Expect(cfg.Publisher.Brokers).To(Equal([]string{"k:9092"}))
		Expect(cfg.Proxy.Listen).To(Equal(":8080"))
	})

	It("env vars take precedence over config file values", func() {
		data := "[proxy]\nupstream = \"https://api.anthropic.com\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		GinkgoT().Setenv("REEL_PROXY_UPSTREAM", "http://localhost:4000")
		GinkgoT().Setenv("REEL_PUBLISHER_BROKERS", "a:1,b:2")
		GinkgoT().Setenv("REEL_PARSER_REPAIR_TOOL_JSON", "true")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Proxy.Upstream).To(Equal("http://localhost:4000"))
		Expect(cfg.Publisher.Brokers).To(Equal([]string{"a:1", "b:2"}))
		Expect(cfg.Parser.RepairToolJSON).To(BeTrue())
	})
})

var _ = Describe("BindRegisteredFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		var repair bool
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		config.AddBoolFlag(cmd, config.Flags, config.FlagRepair, &repair)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		Expect(cmd.Flags().Set("repair", "true")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen, config.FlagRepair, "nonexistent"})

		Expect(v.GetString("proxy.listen")).To(Equal(":7777"))
		Expect(v.GetBool("parser.repair_tool_json")).To(BeTrue())
	})

	It("falls through to config when flag not set", func() {
		data := "[proxy]\nlisten = \":5555\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("proxy.listen")).To(Equal(":5555"))
	})

	It("pulls name, shorthand, default and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var workers uint
		var upstream string
		config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)
		config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &upstream)

		f := cmd.Flags().Lookup("workers")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("4"))

		f = cmd.Flags().Lookup("upstream")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("u"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Proxy.Upstream))
	})
})
