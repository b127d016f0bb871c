package runner

import "github.com/xkilldash9x/waflow/api/schemas"

// BaseURL is the web client entry point.
const BaseURL = "https://web.whatsapp.com"

// Selectors for the WhatsApp Web DOM. These track the host UI and are the
// part of the workflow most likely to need maintenance when it changes.
const (
	// selChatsPane renders once the application has loaded and the account is
	// authenticated; it gates the whole batch.
	selChatsPane = "#pane-side"

	// selComposer is the message text input, present in both the chat view
	// and (as the caption box) the media preview.
	selComposer = "div[data-lexical-editor='true'][role='textbox']"

	// selInvalidPopup appears when the deep link targets a number without an
	// account; clicking it dismisses the dialog.
	selInvalidPopup = "div[data-testid='popup-controls-ok']"

	selAttachButton = "span[data-icon='clip']"
	selFileInput    = "input[accept='image/*,video/mp4,video/3gpp,video/quicktime']"
	selPreviewSend  = "button[aria-label='Send']"
	selAttachClose  = "button[aria-label='Close']"

	// selOutgoingMsg matches self-authored messages; the last match in DOM
	// order is the most recent.
	selOutgoingMsg = "div.message-out"
	// selMsgMenu is the per-message contextual menu control, rendered only
	// while the message is hovered.
	selMsgMenu           = "div[role='button']:has(span[data-icon='menu-down'])"
	selMenuDelete        = "div[data-testid='message-menu-delete']"
	selDeleteForEveryone = "button[data-testid='popup-controls-delete-for-everyone']"
	selConfirmOK         = "button[data-testid='popup-controls-ok']"
	selConfirmCancel     = "button[data-testid='popup-controls-cancel']"
)

// Tags for the composer-vs-popup race.
const (
	tagComposer     = "composer"
	tagInvalidPopup = "invalid-popup"
)

func present(selector string) schemas.WaitCondition {
	return schemas.WaitCondition{Tag: selector, Selector: selector}
}

func clickable(selector string) schemas.WaitCondition {
	return schemas.WaitCondition{Tag: selector, Selector: selector, Clickable: true}
}
