package cloud

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
	"github.com/alexisbeaulieu97/sunbeam/internal/netutil"
	"github.com/alexisbeaulieu97/sunbeam/internal/questions"
)

// Answer store sections.
const (
	UserSection            = "user"
	ExternalNetworkSection = "external_network"
)

// UserQuestions configure the demo user and its project network.
func UserQuestions() map[string]*questions.Question {
	return map[string]*questions.Question{
		"username": questions.NewPrompt("Username to use for access to OpenStack", questions.WithDefault("demo")),
		"password": questions.NewPassword("Password to use for access to OpenStack",
			questions.WithDefaultFunc(questions.PasswordDefault)),
		"cidr": questions.NewPrompt("Network range to use for project network",
			questions.WithDefault("192.168.122.0/24")),
		"security_group_rules": questions.NewConfirm("Setup security group rules for SSH and ICMP ingress", true),
	}
}

// ExternalNetworkQuestions configure the provider network used for floating IPs.
func ExternalNetworkQuestions() map[string]*questions.Question {
	return map[string]*questions.Question{
		"cidr": questions.NewPrompt("CIDR of network to use for external networking",
			questions.WithDefault("10.20.20.0/24")),
		"gateway": questions.NewPrompt("IP address of gateway for external network"),
		"start":   questions.NewPrompt("Start of IP allocation range for external network"),
		"end":     questions.NewPrompt("End of IP allocation range for external network"),
		"physical_network": questions.NewPrompt("Neutron label for physical network to map to external network",
			questions.WithDefault("physnet1")),
		"network_type": questions.NewPrompt("Network type for access to external network",
			questions.WithChoices("flat", "vlan"), questions.WithDefault("flat")),
		"segmentation_id": questions.NewPrompt("VLAN ID to use for external network", questions.WithDefault(0)),
		"enable_host_only_networking": questions.NewConfirm("Enable access to floating IP's from local host only", true),
	}
}

// ConfigureOptions locate the files used by ConfigureCloudStep.
type ConfigureOptions struct {
	// Dir is the terraform working directory.
	Dir         string
	AnswersFile string
	PreseedFile string
	Logger      *logger.Logger
}

// ConfigureCloudStep collects the cloud answers and applies the plans.
type ConfigureCloudStep struct {
	engine.Base
	tf          Terraform
	credentials Credentials
	opts        ConfigureOptions
	log         *logger.Logger
	now         func() time.Time

	answers  questions.Answers
	resolved bool
}

// NewConfigureCloudStep returns a step configuring the cloud as the admin
// described by credentials.
func NewConfigureCloudStep(tf Terraform, credentials Credentials, opts ConfigureOptions) *ConfigureCloudStep {
	return &ConfigureCloudStep{
		Base:        engine.NewBase("Configure OpenStack cloud", "Configuring OpenStack cloud for use"),
		tf:          tf,
		credentials: credentials,
		opts:        opts,
		log:         orNop(opts.Logger),
		now:         time.Now,
	}
}

func (s *ConfigureCloudStep) HasPrompts() bool { return true }

// Prompt asks every question not answered by the preseed and stores the
// answers.
func (s *ConfigureCloudStep) Prompt(ctx context.Context, prompter console.Prompter) error {
	return s.resolve(ctx, prompter, false)
}

// Answers returns the answers resolved so far.
func (s *ConfigureCloudStep) Answers() questions.Answers { return s.answers }

func (s *ConfigureCloudStep) resolve(ctx context.Context, prompter console.Prompter, acceptDefaults bool) error {
	variables, err := questions.LoadAnswers(s.opts.AnswersFile)
	if err != nil {
		return err
	}
	preseed := questions.Answers{}
	if s.opts.PreseedFile != "" {
		if preseed, err = questions.ReadPreseed(s.opts.PreseedFile); err != nil {
			return err
		}
	}

	user := variables.Section(UserSection)
	userBank := questions.NewBank(UserQuestions(), questions.BankOptions{
		Prompter:       prompter,
		Preseed:        questions.SectionOf(preseed, UserSection),
		Previous:       answered(user),
		AcceptDefaults: acceptDefaults,
	})
	for _, key := range []string{"username", "password", "cidr", "security_group_rules"} {
		if user[key], err = userBank.Ask(ctx, key); err != nil {
			return err
		}
	}

	ext := variables.Section(ExternalNetworkSection)
	extBank := questions.NewBank(ExternalNetworkQuestions(), questions.BankOptions{
		Prompter:       prompter,
		Preseed:        questions.SectionOf(preseed, ExternalNetworkSection),
		Previous:       answered(ext),
		AcceptDefaults: acceptDefaults,
	})
	if err := askExternalNetwork(ctx, extBank, ext); err != nil {
		return err
	}

	s.log.Debugf("external network answers: %v", ext)
	if err := questions.WriteAnswers(s.opts.AnswersFile, variables); err != nil {
		return err
	}
	s.answers = variables
	s.resolved = true
	return nil
}

func askExternalNetwork(ctx context.Context, bank *questions.Bank, ext map[string]any) error {
	cidr, err := bank.AskString(ctx, "cidr")
	if err != nil {
		return err
	}
	ext["cidr"] = cidr

	hosts, err := netutil.Hosts(cidr)
	if err != nil {
		return fmt.Errorf("external network: %w", err)
	}
	for _, q := range []struct{ key, def string }{
		{"gateway", hosts.First},
		{"start", hosts.Second},
		{"end", hosts.Last},
	} {
		if ext[q.key], err = bank.AskString(ctx, q.key, questions.WithNewDefault(q.def)); err != nil {
			return err
		}
	}

	if ext["physical_network"], err = bank.AskString(ctx, "physical_network"); err != nil {
		return err
	}
	networkType, err := bank.AskString(ctx, "network_type")
	if err != nil {
		return err
	}
	ext["network_type"] = networkType
	if networkType == "vlan" {
		if ext["segmentation_id"], err = bank.AskInt(ctx, "segmentation_id"); err != nil {
			return err
		}
	} else {
		ext["segmentation_id"] = 0
	}

	if ext["enable_host_only_networking"], err = bank.AskBool(ctx, "enable_host_only_networking"); err != nil {
		return err
	}
	return nil
}

// answered drops stored values that do not count as a previous answer.
func answered(section map[string]any) map[string]any {
	out := make(map[string]any, len(section))
	for key, value := range section {
		if value == nil || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Run applies the plans. Answers are resolved with their defaults first when
// Prompt was not called.
func (s *ConfigureCloudStep) Run(ctx context.Context, _ console.Status) model.Result {
	if !s.resolved {
		if err := s.resolve(ctx, nil, true); err != nil {
			s.log.Error(err, "resolving cloud answers")
			return model.Failed(err.Error())
		}
	}

	logPath := filepath.Join(s.opts.Dir, fmt.Sprintf("terraform-%s.log", s.now().Format("20060102150405")))
	env := append(s.credentials.Env(), "TF_LOG=INFO", "TF_LOG_PATH="+logPath)

	res, err := s.tf.Apply(ctx, s.opts.Dir, env)
	if err != nil {
		s.log.Error(err, "configuring cloud")
		return model.Failed(err.Error())
	}
	s.log.Debugf("terraform apply finished: %s", res.Stdout)
	return model.Completed()
}
