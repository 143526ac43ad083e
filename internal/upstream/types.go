package upstream

import "ucloud-proxy/internal/model"

// envelope is the common uCloud response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Code    int    `json:"code"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	UserID           string `json:"user_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type undoneListResponse struct {
	envelope
	Data model.UndoneList `json:"data"`
}

type detailResponse struct {
	envelope
	Data model.AssignmentDetail `json:"data"`
}

type teacherRecord struct {
	Name string `json:"name"`
}

type siteRecord struct {
	ID       string          `json:"id"`
	SiteName string          `json:"siteName"`
	Teachers []teacherRecord `json:"teachers"`
}

type siteListResponse struct {
	envelope
	Data struct {
		Records []siteRecord `json:"records"`
	} `json:"data"`
}

type activityRecord struct {
	ID string `json:"id"`
}

type activityListResponse struct {
	envelope
	Data struct {
		Records []activityRecord `json:"records"`
	} `json:"data"`
}

type resourceRecord struct {
	ID        string `json:"id"`
	StorageID string `json:"storageId"`
	Name      string `json:"name"`
	Ext       string `json:"ext"`
}

type resourceListResponse struct {
	envelope
	Data []resourceRecord `json:"data"`
}

type previewURLResponse struct {
	envelope
	Data struct {
		PreviewURL string `json:"previewUrl"`
	} `json:"data"`
}
