package scoring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultProfileVersion 内置规则集版本号，参与缓存键计算
const DefaultProfileVersion = "2024.1-core"

// Profile 评分规则集：技能词表与各章节标题列表
// 词表和标题都是数据而非控制流，可按版本替换
type Profile struct {
	Version string `yaml:"version" json:"version"`

	// Skills 技能词表，按展示大小写书写，匹配时统一小写
	Skills []string `yaml:"skills" json:"skills"`

	Experience ExperienceRules `yaml:"experience" json:"experience"`
	Education  EducationRules  `yaml:"education" json:"education"`
}

// ExperienceRules 工作经历章节规则
type ExperienceRules struct {
	StrongHeaders   []string `yaml:"strong_headers" json:"strong_headers"`
	WeakHeaders     []string `yaml:"weak_headers" json:"weak_headers"`
	StopHeaders     []string `yaml:"stop_headers" json:"stop_headers"`
	NonWorkTerms    []string `yaml:"non_work_terms" json:"non_work_terms"`
	JobKeywords     []string `yaml:"job_keywords" json:"job_keywords"`
	ContextKeywords []string `yaml:"context_keywords" json:"context_keywords"`
}

// EducationRules 教育经历章节规则
type EducationRules struct {
	Headers     []string `yaml:"headers" json:"headers"`
	StopHeaders []string `yaml:"stop_headers" json:"stop_headers"`
}

var coreSkills = []string{
	"Python", "Java", "C++", "C", "C#", "JavaScript", "TypeScript", "Go",
	"Rust", "Swift", "Kotlin", "PHP", "Ruby", "Scala", "R", "Matlab",
	"HTML", "CSS", "React", "Angular", "Vue", "Node.js", "Next.js",
	"Django", "Flask", "FastAPI", "Spring Boot",
	"Machine Learning", "Deep Learning", "Data Science", "NLP",
	"TensorFlow", "PyTorch", "Scikit-learn", "Pandas", "NumPy",
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform",
	"CI/CD", "Linux", "Git", "GitHub",
	"SQL", "NoSQL", "MongoDB", "PostgreSQL", "MySQL", "Redis",
	"Data Structures", "Algorithms", "System Design", "OOP",
}

// 扩展词表在核心词表之上追加
var extendedSkills = []string{
	"Dart", "Lua", "Perl", "Shell", "Bash",
	"ASP.NET", "Laravel", "Ruby on Rails", "Tailwind", "Bootstrap", "jQuery", "GraphQL", "REST API",
	"Computer Vision", "Keras", "Matplotlib", "Seaborn", "OpenCV", "Hugging Face", "LLM",
	"Generative AI", "NLTK", "Spacy", "Jupyter",
	"Ansible", "Jenkins", "GitLab", "Unix", "Nginx", "Apache", "Heroku", "Vercel", "Netlify",
	"Oracle", "Cassandra", "Elasticsearch", "DynamoDB", "Firebase", "Snowflake", "Databricks",
	"Functional Programming", "Agile", "Scrum", "Jira", "Trello", "Unit Testing", "Selenium",
	"Postman", "Swagger",
}

// DefaultProfile 返回内置的核心规则集
func DefaultProfile() Profile {
	return Profile{
		Version: DefaultProfileVersion,
		Skills:  append([]string(nil), coreSkills...),
		Experience: ExperienceRules{
			StrongHeaders: []string{"work experience", "employment history", "professional experience", "work history"},
			WeakHeaders:   []string{"experience"},
			StopHeaders: []string{
				"education", "projects", "skills", "certifications", "achievements",
				"leadership", "activities", "interests", "summary", "coursework", "hobbies",
			},
			NonWorkTerms: []string{"club", "society", "captain", "volunteer", "student", "mentor", "committee", "sports"},
			JobKeywords:  []string{"intern", "engineer", "developer", "technician", "assistant", "analyst"},
			ContextKeywords: []string{
				"experience", "work", "history", "career", "role", "employment", "job",
				"developer", "engineer", "architect", "programmer", "coder", "stack",
				"scientist", "analyst", "intelligence", "learning", "vision", "nlp",
				"frontend", "backend", "fullstack", "mobile", "android", "ios", "web",
				"devops", "cloud", "sre", "reliability", "infrastructure", "admin", "network",
				"cybersecurity", "security", "pentester", "soc",
				"tester", "qa", "automation", "sdet", "quality",
				"manager", "product", "project", "consultant", "lead", "scrum",
				"research", "researcher", "blockchain", "quantum", "firmware", "embedded",
				"intern", "trainee", "associate", "grad",
			},
		},
		Education: EducationRules{
			Headers: []string{"education", "academic history", "educational background", "academics"},
			StopHeaders: []string{
				"experience", "work experience", "employment", "skills",
				"projects", "certifications", "achievements", "summary", "awards",
			},
		},
	}
}

// ExtendedProfile 在默认规则集基础上使用扩展技能词表
func ExtendedProfile() Profile {
	p := DefaultProfile()
	p.Version = "2024.1-extended"
	p.Skills = append(p.Skills, extendedSkills...)
	return p
}

// LoadProfile 从YAML文件加载规则集，未填写的部分沿用默认值
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("读取评分规则文件失败: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile 解析YAML格式的规则集
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("解析评分规则失败: %w", err)
	}
	p.fillDefaults()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p *Profile) fillDefaults() {
	def := DefaultProfile()
	if p.Version == "" {
		p.Version = "custom"
	}
	if len(p.Skills) == 0 {
		p.Skills = def.Skills
	}
	if len(p.Experience.StrongHeaders) == 0 && len(p.Experience.WeakHeaders) == 0 {
		p.Experience.StrongHeaders = def.Experience.StrongHeaders
		p.Experience.WeakHeaders = def.Experience.WeakHeaders
	}
	if len(p.Experience.StopHeaders) == 0 {
		p.Experience.StopHeaders = def.Experience.StopHeaders
	}
	if p.Experience.NonWorkTerms == nil {
		p.Experience.NonWorkTerms = def.Experience.NonWorkTerms
	}
	if p.Experience.JobKeywords == nil {
		p.Experience.JobKeywords = def.Experience.JobKeywords
	}
	if p.Experience.ContextKeywords == nil {
		p.Experience.ContextKeywords = def.Experience.ContextKeywords
	}
	if len(p.Education.Headers) == 0 {
		p.Education.Headers = def.Education.Headers
	}
	if len(p.Education.StopHeaders) == 0 {
		p.Education.StopHeaders = def.Education.StopHeaders
	}
}

// Validate 检查规则集是否可用
func (p Profile) Validate() error {
	for _, s := range p.Skills {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("技能词表包含空词条")
		}
	}
	for _, h := range append(append([]string{}, p.Experience.StrongHeaders...), p.Experience.WeakHeaders...) {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("经历章节标题不能为空")
		}
	}
	for _, h := range p.Education.Headers {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("教育章节标题不能为空")
		}
	}
	return nil
}
