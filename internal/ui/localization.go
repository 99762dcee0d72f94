package ui

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle = "app_title"

	KeyUsageTitle       = "usage_title"
	KeyUsageChecking    = "usage_checking"
	KeyUsageUnavailable = "usage_unavailable"
	KeyStorageFull      = "storage_full"

	KeyUploadTitle     = "upload_title"
	KeyAddFile         = "add_file"
	KeyClear           = "clear"
	KeyUpload          = "upload"
	KeyUploading       = "uploading"
	KeyUploadCompleted = "upload_completed"
	KeyUploadFailed    = "upload_failed"
	KeyUploadCancelled = "upload_cancelled"
	KeyNoFilesSelected = "no_files_selected"
	KeyFilesSelected   = "files_selected"
	KeyBundleOption    = "bundle_option"
	KeyBundling        = "bundling"
	KeyBundleFailed    = "bundle_failed"
	KeyRevealFailed    = "reveal_failed"

	KeyFormTitle          = "form_title"
	KeySchoolInfo         = "school_info"
	KeySchoolInfoHint     = "school_info_hint"
	KeyHistory            = "history"
	KeyHistoryHint        = "history_hint"
	KeyCelebrities        = "celebrities"
	KeyAddRecord          = "add_record"
	KeyImportRecords      = "import_records"
	KeyNameHint           = "name_hint"
	KeyDescriptionHint    = "description_hint"
	KeySubmit             = "submit"
	KeySubmitting         = "submitting"
	KeyEmptySubmission    = "empty_submission"
	KeySubmitFailed       = "submit_failed"
	KeyRemoveRecord       = "remove_record"
	KeyRemoveRecordPrompt = "remove_record_prompt"
	KeyRecordsImported    = "records_imported"
	KeyImportFailed       = "import_failed"

	KeyDeviceTitle       = "device_title"
	KeyRefresh           = "refresh"
	KeyDeviceUnavailable = "device_unavailable"
	KeyHostname          = "hostname"
	KeyStoredRecords     = "stored_records"

	KeySettings            = "settings"
	KeySettingsSaved       = "settings_saved"
	KeyServerURL           = "server_url"
	KeyServerURLHint       = "server_url_hint"
	KeyLanguage            = "language"
	KeyConfirmRemoveOption = "confirm_remove_option"
	KeySave                = "save"
	KeyCancel              = "cancel"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		// Use system locale - simplified to English for now
		lang = "en"
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Final fallback - return key itself
	return key
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"zh": "中文",
	}
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	// English texts
	l.texts["en"] = map[string]string{
		KeyAppTitle: "KB Uploader",

		KeyUsageTitle:       "Device Storage",
		KeyUsageChecking:    "Checking storage...",
		KeyUsageUnavailable: "Storage status unavailable",
		KeyStorageFull:      "Device storage is full",

		KeyUploadTitle:     "Upload Files",
		KeyAddFile:         "Add File",
		KeyClear:           "Clear",
		KeyUpload:          "Upload",
		KeyUploading:       "Uploading...",
		KeyUploadCompleted: "Upload completed",
		KeyUploadFailed:    "Upload failed",
		KeyUploadCancelled: "Upload cancelled",
		KeyNoFilesSelected: "No files selected",
		KeyFilesSelected:   "%d file(s), %s total",
		KeyBundleOption:    "Bundle into one zip before uploading",
		KeyBundling:        "Bundling...",
		KeyBundleFailed:    "Bundling failed",
		KeyRevealFailed:    "Could not show file",

		KeyFormTitle:          "Knowledge Form",
		KeySchoolInfo:         "School introduction",
		KeySchoolInfoHint:     "Describe the school...",
		KeyHistory:            "History",
		KeyHistoryHint:        "Describe how the school developed...",
		KeyCelebrities:        "Notable people",
		KeyAddRecord:          "Add person",
		KeyImportRecords:      "Import...",
		KeyNameHint:           "Name",
		KeyDescriptionHint:    "Description",
		KeySubmit:             "Submit",
		KeySubmitting:         "Submitting...",
		KeyEmptySubmission:    "Fill in at least one field before submitting",
		KeySubmitFailed:       "Submission failed",
		KeyRemoveRecord:       "Remove person",
		KeyRemoveRecordPrompt: "Remove this entry?",
		KeyRecordsImported:    "%d record(s) imported",
		KeyImportFailed:       "Import failed",

		KeyDeviceTitle:       "Device",
		KeyRefresh:           "Refresh",
		KeyDeviceUnavailable: "Device status unavailable",
		KeyHostname:          "Hostname",
		KeyStoredRecords:     "School info %d, history %d, people %d, total %d",

		KeySettings:            "Settings",
		KeySettingsSaved:       "Settings saved",
		KeyServerURL:           "Device address",
		KeyServerURLHint:       "Takes effect on next launch",
		KeyLanguage:            "Language",
		KeyConfirmRemoveOption: "Ask before removing a filled entry",
		KeySave:                "Save",
		KeyCancel:              "Cancel",
	}

	// Chinese texts
	l.texts["zh"] = map[string]string{
		KeyAppTitle: "知识库上传工具",

		KeyUsageTitle:       "设备存储",
		KeyUsageChecking:    "正在获取存储信息...",
		KeyUsageUnavailable: "无法获取存储状态",
		KeyStorageFull:      "设备存储空间已满",

		KeyUploadTitle:     "上传文件",
		KeyAddFile:         "添加文件",
		KeyClear:           "清空",
		KeyUpload:          "上传",
		KeyUploading:       "上传中...",
		KeyUploadCompleted: "上传完成",
		KeyUploadFailed:    "上传失败",
		KeyUploadCancelled: "已取消上传",
		KeyNoFilesSelected: "未选择文件",
		KeyFilesSelected:   "%d 个文件，共 %s",
		KeyBundleOption:    "上传前打包为 zip",
		KeyBundling:        "正在打包...",
		KeyBundleFailed:    "打包失败",
		KeyRevealFailed:    "无法在文件管理器中显示",

		KeyFormTitle:          "知识库表单",
		KeySchoolInfo:         "学校简介",
		KeySchoolInfoHint:     "请输入学校简介...",
		KeyHistory:            "发展历程",
		KeyHistoryHint:        "请输入学校发展历程...",
		KeyCelebrities:        "知名人物",
		KeyAddRecord:          "添加人物",
		KeyImportRecords:      "导入...",
		KeyNameHint:           "姓名",
		KeyDescriptionHint:    "人物介绍",
		KeySubmit:             "提交",
		KeySubmitting:         "提交中...",
		KeyEmptySubmission:    "请至少填写一项内容",
		KeySubmitFailed:       "提交失败",
		KeyRemoveRecord:       "删除人物",
		KeyRemoveRecordPrompt: "确定删除该条目？",
		KeyRecordsImported:    "已导入 %d 条记录",
		KeyImportFailed:       "导入失败",

		KeyDeviceTitle:       "设备信息",
		KeyRefresh:           "刷新",
		KeyDeviceUnavailable: "无法获取设备信息",
		KeyHostname:          "主机名",
		KeyStoredRecords:     "学校简介 %d、发展历程 %d、知名人物 %d，共 %d",

		KeySettings:            "设置",
		KeySettingsSaved:       "设置已保存",
		KeyServerURL:           "设备地址",
		KeyServerURLHint:       "下次启动时生效",
		KeyLanguage:            "语言",
		KeyConfirmRemoveOption: "删除已填写条目前确认",
		KeySave:                "保存",
		KeyCancel:              "取消",
	}
}
