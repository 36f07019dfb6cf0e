package repository

import (
	"database/sql"

	"inkwell/internal/document/model"
	"inkwell/pkg/logger"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

// Create inserts the document and the owner's reference-index row in one
// transaction so a visible document always appears in its owner's list.
func (r *DocumentRepository) Create(doc *model.Document) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO documents (id, title, content, owner_email, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		doc.ID, doc.Title, string(doc.Content), doc.Owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
		return err
	}

	_, err = tx.Exec(`INSERT INTO user_documents (email, document_id) VALUES ($1, $2)`, doc.Owner, doc.ID)
	if err != nil {
		logger.Sugar.Errorf("Failed to index document %s for owner: %v", doc.ID, err)
		return err
	}

	return tx.Commit()
}

// GetByID loads the document row plus its access rows. Returns
// sql.ErrNoRows when the document does not exist.
func (r *DocumentRepository) GetByID(docID string) (*model.Document, error) {
	var doc model.Document
	var content string
	err := r.DB.QueryRow(`SELECT id, title, content, owner_email, created_at, updated_at FROM documents WHERE id = $1`, docID).
		Scan(&doc.ID, &doc.Title, &content, &doc.Owner, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to load document %s: %v", docID, err)
		}
		return nil, err
	}
	doc.Content = []byte(content)
	doc.Editors = []string{}
	doc.Viewers = []string{}

	rows, err := r.DB.Query(`SELECT email, tier FROM document_access WHERE document_id = $1`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load access rows for document %s: %v", docID, err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var email, tier string
		if err := rows.Scan(&email, &tier); err != nil {
			return nil, err
		}
		switch tier {
		case "editor":
			doc.Editors = append(doc.Editors, email)
		case "viewer":
			doc.Viewers = append(doc.Viewers, email)
		}
	}
	return &doc, rows.Err()
}

// ListByUser reads the principal's reference index, not the access tables:
// the index is the fast path and the delete cascade keeps it consistent.
func (r *DocumentRepository) ListByUser(principal string) ([]model.DocumentSummary, error) {
	rows, err := r.DB.Query(`
		SELECT d.id, d.title, d.owner_email, d.updated_at
		FROM user_documents ud
		JOIN documents d ON d.id = ud.document_id
		WHERE ud.email = $1
		ORDER BY d.updated_at DESC`, principal)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for %s: %v", principal, err)
		return nil, err
	}
	defer rows.Close()

	docs := []model.DocumentSummary{}
	for rows.Next() {
		var d model.DocumentSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.Owner, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.IsOwner = d.Owner == principal
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) UpdateContent(docID, title string, content []byte) error {
	res, err := r.DB.Exec(`UPDATE documents SET title = $1, content = $2, updated_at = NOW() WHERE id = $3`,
		title, string(content), docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update document %s: %v", docID, err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Grant adds an access row and the grantee's reference-index row together.
func (r *DocumentRepository) Grant(docID, email, tier string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO document_access (document_id, email, tier) VALUES ($1, $2, $3)`, docID, email, tier)
	if err != nil {
		logger.Sugar.Errorf("Failed to grant %s on document %s: %v", tier, docID, err)
		return err
	}
	_, err = tx.Exec(`INSERT INTO user_documents (email, document_id) VALUES ($1, $2)`, email, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to index document %s for %s: %v", docID, email, err)
		return err
	}
	return tx.Commit()
}

// DeleteCascade removes the access rows, every member's reference-index row
// and the document itself in one transaction. Returns sql.ErrNoRows when the
// document was already gone.
func (r *DocumentRepository) DeleteCascade(docID string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM document_access WHERE document_id = $1`, docID); err != nil {
		logger.Sugar.Errorf("Failed to delete access rows for document %s: %v", docID, err)
		return err
	}
	if _, err = tx.Exec(`DELETE FROM user_documents WHERE document_id = $1`, docID); err != nil {
		logger.Sugar.Errorf("Failed to delete index rows for document %s: %v", docID, err)
		return err
	}
	res, err := tx.Exec(`DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete document %s: %v", docID, err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// GetUserName resolves a user's display name by email. sql.ErrNoRows means
// no such user.
func (r *DocumentRepository) GetUserName(email string) (string, error) {
	var name string
	err := r.DB.QueryRow(`SELECT name FROM users WHERE email = $1`, email).Scan(&name)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to look up user %s: %v", email, err)
	}
	return name, err
}

func (r *DocumentRepository) Members(docID string) ([]model.MemberInfo, error) {
	rows, err := r.DB.Query(`
		SELECT u.email, u.name, 'owner' AS tier FROM documents d JOIN users u ON u.email = d.owner_email WHERE d.id = $1
		UNION ALL
		SELECT u.email, u.name, a.tier FROM document_access a JOIN users u ON u.email = a.email WHERE a.document_id = $1`, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load members for document %s: %v", docID, err)
		return nil, err
	}
	defer rows.Close()

	members := []model.MemberInfo{}
	for rows.Next() {
		var m model.MemberInfo
		if err := rows.Scan(&m.Email, &m.Name, &m.Tier); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
