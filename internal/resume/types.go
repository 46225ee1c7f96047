package resume

import "time"

const (
	DefaultTitle      = "Untitled Resume"
	DefaultTemplateID = 1
	MaxTitleLength    = 255
)

// PersonalInfo 为简历抬头中的个人信息。
type PersonalInfo struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Portfolio string `json:"portfolio"`
}

type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

type Project struct {
	Name         string `json:"name"`
	Technologies string `json:"technologies"`
	Description  string `json:"description"`
}

type Certification struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Year         string `json:"year"`
	CredentialID string `json:"credentialId"`
}

type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// Resume 是返回给客户端的完整简历。nil 的集合字段序列化为 null。
type Resume struct {
	ID             uint            `json:"id"`
	UserID         uint            `json:"user_id"`
	Title          string          `json:"title"`
	TemplateID     int             `json:"template_id"`
	PersonalInfo   *PersonalInfo   `json:"personal_info"`
	Summary        string          `json:"summary"`
	Skills         []string        `json:"skills"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	Achievements   []string        `json:"achievements"`
	Interests      []string        `json:"interests"`
	Languages      []Language      `json:"languages"`
	ExtractedText  string          `json:"extracted_text"`
	HasSourceFile  bool            `json:"has_source_file"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ListItem 是列表接口中的简历摘要。
type ListItem struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	TemplateID int       `json:"template_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Suggestions 取自最近更新的简历，用于预填新简历。
type Suggestions struct {
	PersonalInfo   *PersonalInfo   `json:"personal_info"`
	Skills         []string        `json:"skills"`
	Education      []Education     `json:"education"`
	Certifications []Certification `json:"certifications"`
	Languages      []Language      `json:"languages"`
	Interests      []string        `json:"interests"`
}

// Payload 是客户端同步时提交的固定结构文档。
type Payload struct {
	Title          string          `json:"title"`
	TemplateID     int             `json:"template_id,omitempty"`
	PersonalInfo   PersonalInfo    `json:"personal_info"`
	Summary        string          `json:"summary"`
	Skills         []string        `json:"skills"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	Achievements   []string        `json:"achievements"`
	Interests      []string        `json:"interests"`
	Languages      []Language      `json:"languages"`
}
