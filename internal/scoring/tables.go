package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pair 两个互补/关联的词条，YAML 中写作二元列表。
type Pair struct {
	A string
	B string
}

// UnmarshalYAML 接受 [a, b] 形式。
func (p *Pair) UnmarshalYAML(node *yaml.Node) error {
	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	if len(items) != 2 {
		return fmt.Errorf("line %d: pair needs exactly 2 entries, got %d", node.Line, len(items))
	}
	p.A, p.B = items[0], items[1]
	return nil
}

// MarshalYAML 输出 [a, b]。
func (p Pair) MarshalYAML() (any, error) {
	return []string{p.A, p.B}, nil
}

// Category 具名关键词集合，按声明顺序匹配。
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Level 经验等级及其职称关键词。
type Level struct {
	Level    int      `yaml:"level"`
	Keywords []string `yaml:"keywords"`
}

// Tables 打分用的启发式词表，可通过 YAML 替换，与打分逻辑解耦。
type Tables struct {
	IndustryClusters             []Category `yaml:"industry_clusters"`
	ComplementaryIndustries      []Pair     `yaml:"complementary_industries"`
	PositionRelations            []Pair     `yaml:"position_relations"`
	PositionTiers                []Category `yaml:"position_tiers"`
	GoalCategories               []Category `yaml:"goal_categories"`
	ComplementaryGoals           []Pair     `yaml:"complementary_goals"`
	SkillCategories              []Category `yaml:"skill_categories"`
	ComplementarySkillCategories []Pair     `yaml:"complementary_skill_categories"`
	// ExperienceLevels 按顺序匹配，先命中者生效。
	ExperienceLevels       []Level `yaml:"experience_levels"`
	DefaultExperienceLevel int     `yaml:"default_experience_level"`
}

// LoadTables 从 YAML 读取词表，缺失的字段回退为内置默认值。
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables: %w", err)
	}
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parse tables: %w", err)
	}
	return t.withDefaults(), nil
}

func (t Tables) withDefaults() Tables {
	def := DefaultTables()
	if len(t.IndustryClusters) == 0 {
		t.IndustryClusters = def.IndustryClusters
	}
	if len(t.ComplementaryIndustries) == 0 {
		t.ComplementaryIndustries = def.ComplementaryIndustries
	}
	if len(t.PositionRelations) == 0 {
		t.PositionRelations = def.PositionRelations
	}
	if len(t.PositionTiers) == 0 {
		t.PositionTiers = def.PositionTiers
	}
	if len(t.GoalCategories) == 0 {
		t.GoalCategories = def.GoalCategories
	}
	if len(t.ComplementaryGoals) == 0 {
		t.ComplementaryGoals = def.ComplementaryGoals
	}
	if len(t.SkillCategories) == 0 {
		t.SkillCategories = def.SkillCategories
	}
	if len(t.ComplementarySkillCategories) == 0 {
		t.ComplementarySkillCategories = def.ComplementarySkillCategories
	}
	if len(t.ExperienceLevels) == 0 {
		t.ExperienceLevels = def.ExperienceLevels
	}
	if t.DefaultExperienceLevel < 1 || t.DefaultExperienceLevel > 5 {
		t.DefaultExperienceLevel = def.DefaultExperienceLevel
	}
	return t
}

// DefaultTables 内置词表。
func DefaultTables() Tables {
	return Tables{
		IndustryClusters: []Category{
			{Name: "technology", Keywords: []string{"technology", "tech", "software", "saas", "it", "internet", "ai", "artificial intelligence", "cloud", "cybersecurity"}},
			{Name: "finance", Keywords: []string{"finance", "fintech", "banking", "investment", "venture capital", "private equity", "insurance", "asset management"}},
			{Name: "health", Keywords: []string{"healthcare", "health", "biotech", "pharma", "pharmaceutical", "medical", "life sciences"}},
			{Name: "commerce", Keywords: []string{"retail", "e-commerce", "ecommerce", "consumer goods", "fmcg", "wholesale"}},
			{Name: "media", Keywords: []string{"media", "marketing", "advertising", "entertainment", "publishing"}},
			{Name: "industrial", Keywords: []string{"manufacturing", "automotive", "energy", "logistics", "construction"}},
			{Name: "education", Keywords: []string{"education", "edtech", "training", "e-learning"}},
		},
		ComplementaryIndustries: []Pair{
			{"software", "finance"},
			{"technology", "finance"},
			{"technology", "healthcare"},
			{"technology", "retail"},
			{"technology", "education"},
			{"technology", "manufacturing"},
			{"advertising", "e-commerce"},
			{"logistics", "e-commerce"},
			{"venture capital", "technology"},
			{"consulting", "manufacturing"},
		},
		PositionRelations: []Pair{
			{"ceo", "investor"},
			{"founder", "investor"},
			{"founder", "venture capitalist"},
			{"ceo", "angel"},
			{"cto", "engineer"},
			{"cto", "developer"},
			{"sales", "procurement"},
			{"sales", "buyer"},
			{"marketing", "sales"},
			{"product manager", "designer"},
			{"product manager", "engineer"},
			{"recruiter", "engineer"},
			{"mentor", "student"},
		},
		PositionTiers: []Category{
			{Name: "executive", Keywords: []string{"ceo", "cto", "cfo", "coo", "cmo", "founder", "co-founder", "president", "vp", "vice president", "director", "partner", "chief", "owner"}},
			{Name: "manager", Keywords: []string{"manager", "head", "lead", "supervisor", "principal"}},
			{Name: "specialist", Keywords: []string{"engineer", "developer", "designer", "analyst", "specialist", "consultant", "scientist", "associate", "researcher"}},
		},
		GoalCategories: []Category{
			{Name: "funding", Keywords: []string{"funding", "investment", "investor", "capital", "fundraising", "raise"}},
			{Name: "partnership", Keywords: []string{"partnership", "partner", "collaboration", "alliance", "joint venture"}},
			{Name: "growth", Keywords: []string{"customers", "clients", "sales", "leads", "market expansion", "growth"}},
			{Name: "talent", Keywords: []string{"hiring", "talent", "recruit", "recruiting", "team building"}},
			{Name: "learning", Keywords: []string{"mentorship", "mentor", "learning", "advice", "knowledge"}},
			{Name: "innovation", Keywords: []string{"technology", "innovation", "digital transformation", "ai", "product"}},
		},
		ComplementaryGoals: []Pair{
			{"seeking investment", "investing"},
			{"raise", "invest"},
			{"hiring", "job"},
			{"hiring", "career"},
			{"selling", "procurement"},
			{"sales", "sourcing"},
			{"mentorship", "giving back"},
			{"learning", "teaching"},
			{"expansion", "distribution"},
		},
		SkillCategories: []Category{
			{Name: "programming", Keywords: []string{"go", "golang", "java", "python", "javascript", "typescript", "rust", "c++", "kotlin", "swift", "backend", "frontend"}},
			{Name: "data", Keywords: []string{"data", "machine learning", "ml", "ai", "statistics", "analytics", "sql"}},
			{Name: "design", Keywords: []string{"design", "ux", "ui", "figma", "branding"}},
			{Name: "business", Keywords: []string{"sales", "marketing", "finance", "strategy", "negotiation", "business development", "fundraising"}},
			{Name: "cloud", Keywords: []string{"aws", "gcp", "azure", "kubernetes", "devops", "docker", "infrastructure"}},
			{Name: "management", Keywords: []string{"leadership", "management", "product management", "agile", "scrum", "operations"}},
		},
		ComplementarySkillCategories: []Pair{
			{"programming", "design"},
			{"programming", "cloud"},
			{"data", "business"},
			{"management", "programming"},
			{"design", "business"},
			{"data", "programming"},
		},
		ExperienceLevels: []Level{
			{Level: 1, Keywords: []string{"junior", "intern", "trainee", "graduate", "assistant", "entry"}},
			{Level: 5, Keywords: []string{"ceo", "cto", "cfo", "coo", "cmo", "founder", "co-founder", "president", "chief", "partner", "investor", "owner"}},
			{Level: 4, Keywords: []string{"vp", "vice president", "director", "head"}},
			{Level: 3, Keywords: []string{"senior", "lead", "principal", "manager", "staff"}},
			{Level: 2, Keywords: []string{"engineer", "developer", "analyst", "specialist", "consultant", "designer", "associate"}},
		},
		DefaultExperienceLevel: 2,
	}
}
