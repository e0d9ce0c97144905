package wizard

import (
	"bytes"
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/unistep/internal/models"
	"github.com/yoockh/unistep/internal/notify"
	"github.com/yoockh/unistep/internal/storage"
	"github.com/yoockh/unistep/internal/utils"
)

// ObjectPrefix is the object store folder for applicant files.
const ObjectPrefix = "applications"

type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
	// Meta is passed through to UploadResult untouched.
	Meta map[string]any
}

// StartUpload marks field as uploading and stores the file in the background.
// The field keeps its previous value until the upload resolves, so validation
// never counts an upload that is still in flight. Uploads are not cancelled
// when ctx is.
func (w *Wizard) StartUpload(ctx context.Context, field models.FileField, in FileInput) (Snapshot, error) {
	const op = "Wizard.StartUpload"

	w.mu.Lock()
	if err := w.formStateLocked(op); err != nil {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, err
	}
	if !isEditable(w.step, string(field)) {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, utils.E(utils.CodeInvalidArgument, op, string(field)+" is not editable on "+w.step.String(), ErrNotEditable)
	}
	w.uploading[field]++
	w.tasks.Add(1)
	snap := w.snapshotLocked()
	w.mu.Unlock()

	go w.runUpload(context.WithoutCancel(ctx), field, in, w.now())
	return snap, nil
}

func (w *Wizard) runUpload(ctx context.Context, field models.FileField, in FileInput, at time.Time) {
	defer w.tasks.Done()

	log := w.log.WithFields(logrus.Fields{"wizard_id": w.id, "field": field, "file_name": in.Name})
	objectName := storage.ObjectName(ObjectPrefix, string(field), in.Name, at)

	url, err := w.store(ctx, objectName, in)

	w.mu.Lock()
	if w.uploading[field]--; w.uploading[field] <= 0 {
		delete(w.uploading, field)
	}
	// once the insert has started the draft is fixed; a later upload must
	// not reach the stored application
	landed := err == nil && w.step != Submitted && !w.submitting
	if landed {
		w.app.SetFile(field, url)
	}
	w.mu.Unlock()

	switch {
	case err != nil:
		log.WithError(err).Error("file upload failed")
		w.notify(ctx, notify.LevelError, MsgUploadFailed, field)
		return
	case !landed:
		log.Warn("upload resolved after submission started, discarded")
		w.notify(ctx, notify.LevelError, MsgUploadDiscarded, field)
	default:
		w.notify(ctx, notify.LevelInfo, MsgUploaded, field)
	}

	if w.onUpload != nil {
		w.onUpload(ctx, UploadResult{
			WizardID:    w.id,
			University:  w.university,
			Field:       field,
			ObjectName:  objectName,
			URL:         url,
			FileName:    in.Name,
			ContentType: in.ContentType,
			Size:        int64(len(in.Data)),
			At:          at,
			Discarded:   !landed,
			Meta:        in.Meta,
		})
	}
}

func (w *Wizard) store(ctx context.Context, objectName string, in FileInput) (string, error) {
	handle, err := w.objects.Upload(ctx, objectName, in.ContentType, int64(len(in.Data)), bytes.NewReader(in.Data))
	if err != nil {
		return "", err
	}
	return w.objects.DownloadURL(ctx, handle)
}

// Wait blocks until every started upload has resolved.
func (w *Wizard) Wait() { w.tasks.Wait() }
