// Package documents implements the document-creation calls of the
// marking API on top of an apigate.Client.
//
// The client must be configured with an endpoint named
// EndpointIntroduceGoods:
//
//	api, err := apigate.New(apigate.Config{
//		Window:            time.Second,
//		RequestsPerWindow: 10,
//		Endpoints: map[string]string{
//			documents.EndpointIntroduceGoods: "https://ismp.crpt.ru/api/v3/lk/documents/create",
//		},
//	}, provider)
//	...
//	resp, err := documents.New(api).IntroduceGoods(ctx, doc, documents.Milk, signature)
package documents
