package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/pagination"
)

// Store 提供按所有者隔离的简历读写。所有读取都过滤 is_active，
// 他人简历与不存在的简历同样返回 ErrNotFound。
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create 插入一份新的有效简历，未提供的集合字段存为 NULL。
func (s *Store) Create(ctx context.Context, ownerID uint, p Patch) (*Resume, error) {
	row := database.Resume{
		UserID:     ownerID,
		Title:      DefaultTitle,
		TemplateID: DefaultTemplateID,
		IsActive:   true,
	}
	updates, err := p.columns()
	if err != nil {
		return nil, err
	}
	applyColumns(&row, updates)

	now := s.now()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return toResume(row), nil
}

// List 返回所有者的有效简历，按 updated_at、id 倒序。
func (s *Store) List(ctx context.Context, ownerID uint, page pagination.Params) ([]ListItem, pagination.Meta, error) {
	active := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&database.Resume{}).Where("user_id = ? AND is_active = ?", ownerID, true)
	}

	var total int64
	if err := active().Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("count resumes: %w", err)
	}

	var rows []database.Resume
	if err := active().Select("id", "title", "template_id", "created_at", "updated_at").
		Order("updated_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list resumes: %w", err)
	}

	items := make([]ListItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, ListItem{
			ID:         r.ID,
			Title:      r.Title,
			TemplateID: r.TemplateID,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return items, page.Meta(total), nil
}

// Get 读取一份属于所有者的有效简历。
func (s *Store) Get(ctx context.Context, ownerID, id uint) (*Resume, error) {
	row, err := s.find(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return toResume(*row), nil
}

// Update 只修改出现的字段，集合字段整体替换，updated_at 总是刷新。
func (s *Store) Update(ctx context.Context, ownerID, id uint, p Patch) (*Resume, error) {
	if p.Empty() {
		return nil, errcode.Validation("no valid fields to update")
	}
	updates, err := p.columns()
	if err != nil {
		return nil, err
	}
	updates["updated_at"] = s.now()

	res := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update resume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errcode.NotFound("resume not found")
	}
	return s.Get(ctx, ownerID, id)
}

// SoftDelete 将简历标记为无效；重复删除返回 ErrNotFound。
func (s *Store) SoftDelete(ctx context.Context, ownerID, id uint) error {
	res := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).
		Updates(map[string]any{"is_active": false, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("delete resume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("resume not found")
	}
	return nil
}

// Suggestions 返回最近更新的有效简历中可复用的字段；没有简历时各字段均为 null。
func (s *Store) Suggestions(ctx context.Context, ownerID uint) (*Suggestions, error) {
	var row database.Resume
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", ownerID, true).
		Order("updated_at DESC").Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Suggestions{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}

	r := toResume(row)
	return &Suggestions{
		PersonalInfo:   r.PersonalInfo,
		Skills:         r.Skills,
		Education:      r.Education,
		Certifications: r.Certifications,
		Languages:      r.Languages,
		Interests:      r.Interests,
	}, nil
}

// AttachSource 记录上传的源文件对象键。
func (s *Store) AttachSource(ctx context.Context, ownerID, id uint, objectKey string) error {
	return s.setColumn(ctx, ownerID, id, "source_object_key", objectKey)
}

// SetExtractedText 写入从 objectKey 抽取的文本。源文件已被新上传替换时返回 NotFound，
// 避免较慢的旧任务覆盖新文件的结果。
func (s *Store) SetExtractedText(ctx context.Context, ownerID, id uint, objectKey, text string) error {
	res := s.owned(ctx, ownerID, id).
		Where("source_object_key = ?", objectKey).
		Updates(map[string]any{"extracted_text": text, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("update resume extracted_text: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("resume not found or source replaced")
	}
	return nil
}

// SourceKey 返回当前关联的源文件 key，未上传过时为空串。
func (s *Store) SourceKey(ctx context.Context, ownerID, id uint) (string, error) {
	row, err := s.find(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return row.SourceObjectKey, nil
}

// Exists 判断所有者是否拥有该有效简历。
func (s *Store) Exists(ctx context.Context, ownerID, id uint) error {
	_, err := s.find(ctx, ownerID, id)
	return err
}

func (s *Store) owned(ctx context.Context, ownerID, id uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true)
}

func (s *Store) setColumn(ctx context.Context, ownerID, id uint, column string, value any) error {
	res := s.owned(ctx, ownerID, id).
		Updates(map[string]any{column: value, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("update resume %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("resume not found")
	}
	return nil
}

func (s *Store) find(ctx context.Context, ownerID, id uint) (*database.Resume, error) {
	var row database.Resume
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", id, ownerID, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("resume not found")
		}
		return nil, fmt.Errorf("get resume: %w", err)
	}
	return &row, nil
}

// columns 将 Patch 转为列名到值的映射。
func (p Patch) columns() (map[string]any, error) {
	cols := map[string]any{}

	if p.Title.Set {
		cols["title"] = normalizeTitle(p.Title.Value)
	}
	if p.TemplateID.Set {
		if p.TemplateID.Null {
			cols["template_id"] = DefaultTemplateID
		} else {
			cols["template_id"] = p.TemplateID.Value
		}
	}
	if p.Summary.Set {
		cols["summary"] = p.Summary.Value
	}
	if p.ExtractedText.Set {
		cols["extracted_text"] = p.ExtractedText.Value
	}

	jsonCols := []struct {
		name string
		set  bool
		null bool
		val  any
	}{
		{"personal_info", p.PersonalInfo.Set, p.PersonalInfo.Null, p.PersonalInfo.Value},
		{"skills", p.Skills.Set, p.Skills.Null, p.Skills.Value},
		{"experience", p.Experience.Set, p.Experience.Null, p.Experience.Value},
		{"education", p.Education.Set, p.Education.Null, p.Education.Value},
		{"projects", p.Projects.Set, p.Projects.Null, p.Projects.Value},
		{"certifications", p.Certifications.Set, p.Certifications.Null, p.Certifications.Value},
		{"achievements", p.Achievements.Set, p.Achievements.Null, p.Achievements.Value},
		{"interests", p.Interests.Set, p.Interests.Null, p.Interests.Value},
		{"languages", p.Languages.Set, p.Languages.Null, p.Languages.Value},
	}
	for _, c := range jsonCols {
		if !c.set {
			continue
		}
		if c.null {
			cols[c.name] = datatypes.JSON(nil)
			continue
		}
		b, err := json.Marshal(c.val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		if string(b) == "null" {
			cols[c.name] = datatypes.JSON(nil)
			continue
		}
		cols[c.name] = datatypes.JSON(b)
	}
	return cols, nil
}

func applyColumns(row *database.Resume, cols map[string]any) {
	for name, v := range cols {
		switch name {
		case "title":
			row.Title = v.(string)
		case "template_id":
			row.TemplateID = v.(int)
		case "summary":
			row.Summary = v.(string)
		case "extracted_text":
			row.ExtractedText = v.(string)
		case "personal_info":
			row.PersonalInfo = v.(datatypes.JSON)
		case "skills":
			row.Skills = v.(datatypes.JSON)
		case "experience":
			row.Experience = v.(datatypes.JSON)
		case "education":
			row.Education = v.(datatypes.JSON)
		case "projects":
			row.Projects = v.(datatypes.JSON)
		case "certifications":
			row.Certifications = v.(datatypes.JSON)
		case "achievements":
			row.Achievements = v.(datatypes.JSON)
		case "interests":
			row.Interests = v.(datatypes.JSON)
		case "languages":
			row.Languages = v.(datatypes.JSON)
		}
	}
}

// normalizeTitle 去除空白，空标题使用默认值，超长按字符截断。
func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	runes := []rune(title)
	if len(runes) > MaxTitleLength {
		return string(runes[:MaxTitleLength])
	}
	return title
}

func toResume(row database.Resume) *Resume {
	r := &Resume{
		ID:            row.ID,
		UserID:        row.UserID,
		Title:         row.Title,
		TemplateID:    row.TemplateID,
		Summary:       row.Summary,
		ExtractedText: row.ExtractedText,
		HasSourceFile: row.SourceObjectKey != "",
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.PersonalInfo) > 0 && string(row.PersonalInfo) != "null" {
		var info PersonalInfo
		if json.Unmarshal(row.PersonalInfo, &info) == nil {
			r.PersonalInfo = &info
		}
	}
	decodeJSON(row.Skills, &r.Skills)
	decodeJSON(row.Experience, &r.Experience)
	decodeJSON(row.Education, &r.Education)
	decodeJSON(row.Projects, &r.Projects)
	decodeJSON(row.Certifications, &r.Certifications)
	decodeJSON(row.Achievements, &r.Achievements)
	decodeJSON(row.Interests, &r.Interests)
	decodeJSON(row.Languages, &r.Languages)
	return r
}

// decodeJSON 忽略无法解析的历史数据，保留 nil。
func decodeJSON[T any](raw datatypes.JSON, dst *[]T) {
	if len(raw) == 0 {
		return
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return
	}
	*dst = out
}
